// Package facts 通过生成模型获取电台简介，失败时使用内置内容
package facts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"bourgade-tui/model"
)

var (
	ErrNoAPIKey  = errors.New("facts: no API key configured")
	ErrMalformed = errors.New("facts: malformed response")
)

// Fact 播放器下方显示的一条简介
type Fact struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Fallback 无法生成时使用的固定简介
func Fallback() []Fact {
	return []Fact{
		{Title: "Le Symbole du Baobab", Content: "Notre logo représente la force et la bienveillance de cet arbre sacré qui nourrit et protège."},
		{Title: "L'Expérience au Micro", Content: "Sous la direction de Ladji Hamed Nabalma, Bourgade FM bénéficie de 22 ans d'expertise médiatique."},
		{Title: "94.3 FM à Ouahigouya", Content: "Au cœur du Yadga, nous portons la voix des bourgs et des faubourgs jusqu'à vos oreilles."},
	}
}

// Client Gemini generateContent REST 客户端
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	group singleflight.Group
}

// NewClient 创建客户端。apiKey 为空时直接失败，Load 不访问网络即返回内置内容
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type schema struct {
	Type       string            `json:"type"`
	Items      *schema           `json:"items,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
	ResponseSchema   schema `json:"responseSchema"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var factSchema = schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"title":   {Type: "STRING"},
			"content": {Type: "STRING"},
		},
		Required: []string{"title", "content"},
	},
}

func prompt() string {
	return fmt.Sprintf("En te basant sur ce contexte : %q, génère 3 faits courts, percutants et élégants pour les auditeurs de l'application. Réponds en JSON.", model.FactsContext)
}

// Fetch 向模型请求简介，网络、状态码或格式问题都返回错误
func (c *Client) Fetch(ctx context.Context) ([]Fact, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt()}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   factSchema,
		},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("facts status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformed)
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return parseFacts(text.String())
}

func parseFacts(text string) ([]Fact, error) {
	var facts []Fact
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &facts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrMalformed)
	}
	for i, f := range facts {
		if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
			return nil, fmt.Errorf("%w: fact %d is incomplete", ErrMalformed, i)
		}
	}
	return facts, nil
}

// Load 返回生成的简介，失败时返回 Fallback。并发调用共享同一个请求
func (c *Client) Load(ctx context.Context) []Fact {
	v, err, _ := c.group.Do("facts", func() (any, error) {
		return c.Fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, ErrNoAPIKey) {
			log.Debug().Msg("no facts API key, using built-in facts")
		} else {
			log.Warn().Err(err).Msg("fetching facts failed, using built-in facts")
		}
		return Fallback()
	}
	return v.([]Fact)
}
