package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bourgade-tui/audiograph"
	"bourgade-tui/canvas"
	"bourgade-tui/config"
	"bourgade-tui/facts"
	"bourgade-tui/model"
	"bourgade-tui/playback"
	"bourgade-tui/player"
	"bourgade-tui/spectrum"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"
)

const (
	volumeStep   = 0.05
	factsTimeout = 30 * time.Second
	maxVisCols   = 96
)

// KeyMap 定义快捷键
type KeyMap struct {
	Toggle  key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Mute    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp 返回简短的帮助信息
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.VolUp, k.VolDown, k.Help, k.Quit}
}

// FullHelp 返回详细帮助信息
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Mute},
		{k.VolUp, k.VolDown},
		{k.Help, k.Quit},
	}
}

// 默认快捷键
var DefaultKeyMap = KeyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter", "p"),
		key.WithHelp("espace", "lecture/pause"),
	),
	VolUp: key.NewBinding(
		key.WithKeys("+", "=", "up"),
		key.WithHelp("+", "volume +"),
	),
	VolDown: key.NewBinding(
		key.WithKeys("-", "_", "down"),
		key.WithHelp("-", "volume -"),
	),
	Mute: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "muet"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "aide"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quitter"),
	),
}

// 样式定义
var (
	greenColor  = lipgloss.Color(model.ColorGreen)
	yellowColor = lipgloss.Color(model.ColorYellow)
	redColor    = lipgloss.Color(model.ColorRed)
	textColor   = lipgloss.Color("#E5E5E5")
	dimColor    = lipgloss.Color("#7A7A7A")

	backdrop = colorful.MustParseHex(model.ColorDark)

	sloganStyle = lipgloss.NewStyle().
			Foreground(yellowColor).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	playingStyle = lipgloss.NewStyle().
			Foreground(greenColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(redColor)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(dimColor).
				Italic(true).
				Align(lipgloss.Center)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(greenColor).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(yellowColor).
			Bold(true)

	cardTextStyle = lipgloss.NewStyle().
			Foreground(textColor)
)

// 消息类型
type factsLoadedMsg struct {
	facts []facts.Fact
}

// Model TUI 模型
type Model struct {
	ctrl      *playback.Controller
	surface   *canvas.Canvas
	client    *facts.Client
	streamURL string

	facts        []facts.Fact
	factsLoading bool

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	width  int
	height int
}

// NewModel 创建模型
func NewModel(ctrl *playback.Controller, surface *canvas.Canvas, client *facts.Client, streamURL string) Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(yellowColor)),
	)
	p := progress.New(
		progress.WithGradient(model.ColorGreen, model.ColorRed),
		progress.WithWidth(20),
		progress.WithoutPercentage(),
	)

	return Model{
		ctrl:         ctrl,
		surface:      surface,
		client:       client,
		streamURL:    streamURL,
		factsLoading: true,
		keys:         DefaultKeyMap,
		help:         help.New(),
		spinner:      s,
		progress:     p,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadFacts(m.client))
}

// loadFacts 与播放无关，启动时取一次
func loadFacts(client *facts.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return factsLoadedMsg{facts: facts.Fallback()}
		}
		ctx, cancel := context.WithTimeout(context.Background(), factsTimeout)
		defer cancel()
		return factsLoadedMsg{facts: client.Load(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case factsLoadedMsg:
		m.facts = msg.facts
		m.factsLoading = false
		return m, nil

	case playback.LoadedMsg, spectrum.TickMsg:
		return m, m.ctrl.Update(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m, nil
}

// handleKeys 处理按键
func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		return m, m.ctrl.Toggle()

	case key.Matches(msg, m.keys.VolUp):
		m.ctrl.AdjustVolume(volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.VolDown):
		m.ctrl.AdjustVolume(-volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.Mute):
		m.ctrl.ToggleMute()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	// 数字键设置音量
	case len(msg.String()) == 1 && msg.String() >= "0" && msg.String() <= "9":
		m.ctrl.SetVolume(float64(msg.String()[0]-'0') / 10.0)
		return m, nil
	}

	return m, nil
}

// View 渲染视图
func (m Model) View() string {
	width := m.contentWidth()

	sections := []string{
		m.renderHeader(width),
		m.renderVisualizer(width),
		m.renderControls(),
	}
	if err := m.ctrl.Err(); err != nil {
		sections = append(sections, errorStyle.Render("✗ "+err.Error()))
	}
	sections = append(sections,
		"",
		m.renderFacts(width),
		m.renderAbout(width),
		m.renderFooter(width),
		m.help.View(m.keys),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) contentWidth() int {
	w := m.width - 2
	if w <= 0 {
		w = 72
	}
	return min(w, maxVisCols)
}

// renderHeader 台名渐变 + 口号 + 简介 + 频率
func (m Model) renderHeader(width int) string {
	title := gradientText("📻 "+model.Station.Name, model.ColorGreen, model.ColorYellow, model.ColorRed)
	info := statusStyle.Render(fmt.Sprintf("%s · %s", model.Station.Frequency, model.Station.Location))
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(title),
		sloganStyle.Render(model.Station.Slogan),
		cardTextStyle.Width(width).Render(model.Station.Description),
		info,
	)
}

// gradientText 按字符着色，颜色取自水平渐变
func gradientText(s string, hexes ...string) string {
	runes := []rune(s)
	g := canvas.NewLinearGradient(0, 0, float64(max(len(runes)-1, 1)), 0)
	for i, h := range hexes {
		g.AddColorStop(float64(i)/float64(max(len(hexes)-1, 1)), colorful.MustParseHex(h))
	}

	var sb strings.Builder
	for i, r := range runes {
		c := g.ColorAt(float64(i), 0)
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
	}
	return sb.String()
}

// renderVisualizer 播放时显示频谱，否则显示占位文字
func (m Model) renderVisualizer(width int) string {
	rows := visRows(width)
	if m.ctrl.State() != playback.Playing || m.surface == nil {
		return placeholderStyle.
			Width(width).
			Height(rows).
			Render("\n" + "En attente du direct")
	}
	return rasterize(m.surface.Image(), width, rows, backdrop)
}

// visRows 保持画布 4:1 的宽高比，每行两个像素
func visRows(cols int) int {
	return max(1, cols*canvas.Height/canvas.Width/2)
}

func (m Model) renderControls() string {
	var state string
	switch m.ctrl.State() {
	case playback.Loading:
		state = m.spinner.View() + " Connexion..."
	case playback.Playing:
		state = playingStyle.Render("▶ En direct")
	case playback.Paused:
		state = statusStyle.Render("⏸ En pause")
	default:
		state = statusStyle.Render("■ Arrêté")
	}

	vol := m.ctrl.Volume()
	if m.ctrl.Muted() {
		vol = 0
	}
	volume := fmt.Sprintf("%s %s %3d%%", volumeIcon(vol), m.progress.ViewAs(vol), int(vol*100+0.5))

	return state + "   " + volume
}

// volumeIcon 按音量选择图标
func volumeIcon(v float64) string {
	switch {
	case v <= 0:
		return "🔇"
	case v < 0.5:
		return "🔉"
	default:
		return "🔊"
	}
}

// renderFacts 并排显示简介卡片，窄屏时纵向排列
func (m Model) renderFacts(width int) string {
	if m.factsLoading {
		return statusStyle.Render(m.spinner.View() + " Chargement des anecdotes...")
	}
	if len(m.facts) == 0 {
		return ""
	}

	horizontal := width >= 60
	cardWidth := width - 2
	if horizontal {
		cardWidth = width/len(m.facts) - 2
	}

	cards := make([]string, 0, len(m.facts))
	for _, f := range m.facts {
		body := cardTitleStyle.Render(f.Title) + "\n" + cardTextStyle.Render(f.Content)
		cards = append(cards, cardStyle.Width(cardWidth).Render(body))
	}

	if horizontal {
		return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// renderAbout 推广人介绍卡片
func (m Model) renderAbout(width int) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render("À propos du promoteur"),
		lipgloss.NewStyle().Bold(true).Foreground(textColor).Render(model.Station.Promoter),
		statusStyle.Render(model.Station.PromoterBio),
	)
	return cardStyle.Width(width - 2).Render(body)
}

// renderFooter 链接、版权和流地址
func (m Model) renderFooter(width int) string {
	lines := []string{
		fmt.Sprintf("Facebook  %s", model.Station.Facebook),
		fmt.Sprintf("Site web  %s", model.Station.Website),
	}
	if m.streamURL != "" {
		lines = append(lines, fmt.Sprintf("Flux      %s", m.streamURL))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("© %d %s - %s", time.Now().Year(), strings.ToUpper(model.Station.Name), model.Station.Publisher),
		fmt.Sprintf("%q", model.Station.Motto),
		"Éditée avec "+errorStyle.Render("●")+" "+model.Station.Tagline,
	)
	return statusStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// Run 运行 TUI
func Run(cfg config.Config) error {
	media := player.NewStreamMedia(cfg.StreamURL, cfg.SampleRate, cfg.Volume)
	graphs := audiograph.NewManager(func() (audiograph.Context, error) {
		return audiograph.NewDeviceContext(cfg.SampleRate)
	})
	surface := canvas.New(canvas.Width, canvas.Height)
	renderer := spectrum.New(surface, cfg.FPS)
	ctrl := playback.New(media, graphs, renderer, cfg.PlayTimeoutDuration())
	client := facts.NewClient(cfg.FactsURL, cfg.FactsAPIKey, cfg.FactsModel)

	m := NewModel(ctrl, surface, client, media.URL())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithFPS(cfg.FPS))
	_, err := p.Run()

	media.Pause()
	if cerr := graphs.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("closing audio output")
	}

	return err
}
