package facts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func geminiReply(t *testing.T, text string) []byte {
	t.Helper()
	body := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFallback(t *testing.T) {
	a, b := Fallback(), Fallback()
	if len(a) != 3 {
		t.Fatalf("len = %d, want 3", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("fallback %d differs between calls", i)
		}
		if a[i].Title == "" || a[i].Content == "" {
			t.Errorf("fallback %d is incomplete", i)
		}
	}
	a[0].Title = "changed"
	if Fallback()[0].Title == "changed" {
		t.Error("Fallback must return a fresh slice")
	}
}

func TestFetch(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(geminiReply(t, `[{"title":"Un","content":"premier"},{"title":"Deux","content":"second"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", "test-model")
	facts, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(facts) != 2 || facts[1].Title != "Deux" {
		t.Errorf("facts = %+v", facts)
	}
	if gotPath != "/v1beta/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("mime = %q", gotReq.GenerationConfig.ResponseMIMEType)
	}
	if gotReq.GenerationConfig.ResponseSchema.Type != "ARRAY" {
		t.Errorf("schema type = %q", gotReq.GenerationConfig.ResponseSchema.Type)
	}
	if len(gotReq.Contents) != 1 || !strings.Contains(gotReq.Contents[0].Parts[0].Text, "Bourgade") {
		t.Error("prompt should carry the station context")
	}
}

func TestFetchErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"status", http.StatusTooManyRequests, `{"error":"quota"}`, nil},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrMalformed},
		{"not json", http.StatusOK, string(geminiReply(t, "Voici trois faits")), ErrMalformed},
		{"empty list", http.StatusOK, string(geminiReply(t, "[]")), ErrMalformed},
		{"blank field", http.StatusOK, string(geminiReply(t, `[{"title":"A","content":" "}]`)), ErrMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "k", "m").Fetch(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestFetchWithoutKey(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:0", "", "m").Fetch(context.Background())
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestLoadFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	for _, c := range []*Client{NewClient(srv.URL, "k", "m"), NewClient(srv.URL, "", "m")} {
		got := c.Load(context.Background())
		want := Fallback()
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("fact %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	}
}

func TestLoadSharesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write(geminiReply(t, `[{"title":"T","content":"C"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m")

	var wg sync.WaitGroup
	results := make([][]Fact, 4)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Load(context.Background())
		}()
	}

	// 等所有调用方都加入进行中的请求再响应
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if len(r) != 1 || r[0].Title != "T" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}
