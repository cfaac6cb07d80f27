// Package browse is the interactive report browser: a Bubble Tea list
// over the local archive with fuzzy filtering, a detail view, and
// clipboard copy of a report's JSON.
package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/signalhouse/crashtrack/internal/clip"
	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a855f7")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB")).Background(lipgloss.Color("#7C3AED")).Bold(true).Padding(0, 1)
	crashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	partialStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
)

type mode int

const (
	modeList mode = iota
	modeDetail
)

// Model is the browser's Bubble Tea model.
type Model struct {
	store core.ReportStore

	summaries []crash.Summary
	filtered  []int // indexes into summaries
	selected  int

	filter    textinput.Model
	filtering bool

	mode     mode
	detail   viewport.Model
	detailID string

	width  int
	height int
	status string
	err    error
}

// NewModel loads the archive listing and builds the model.
func NewModel(ctx context.Context, store core.ReportStore) (Model, error) {
	sums, err := store.List(ctx, core.ReportFilter{})
	if err != nil {
		return Model{}, err
	}

	ti := textinput.New()
	ti.Placeholder = "filter by signal, uuid, message..."
	ti.CharLimit = 128

	m := Model{
		store:     store,
		summaries: sums,
		filter:    ti,
		detail:    viewport.New(80, 20),
	}
	m.applyFilter("")
	return m, nil
}

// Run starts the browser in the alternate screen.
func Run(ctx context.Context, store core.ReportStore) error {
	m, err := NewModel(ctx, store)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.filter.Width = msg.Width - 10
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFiltering(msg)
		}
		if m.mode == modeDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Reset()
		m.applyFilter("")
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter(m.filter.Value())
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.filtered)-1 {
			m.selected++
		}
	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink
	case "c":
		m.status = m.copySelected()
	case "enter":
		return m.openDetail()
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.mode = modeList
		m.status = ""
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "c":
		m.status = m.copySelected()
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) openDetail() (tea.Model, tea.Cmd) {
	sum, ok := m.current()
	if !ok {
		return *m, nil
	}
	report, err := m.store.Get(context.Background(), sum.UUID)
	if err != nil {
		m.status = "load failed: " + err.Error()
		return *m, nil
	}
	m.mode = modeDetail
	m.detailID = sum.UUID
	m.detail.SetContent(renderDetail(report))
	m.detail.GotoTop()
	return *m, nil
}

func (m *Model) copySelected() string {
	sum, ok := m.current()
	if !ok {
		return ""
	}
	report, err := m.store.Get(context.Background(), sum.UUID)
	if err != nil {
		return "load failed: " + err.Error()
	}
	res, err := clip.WriteReport(report)
	if err != nil {
		return "copy failed: " + err.Error()
	}
	if res.Method == clip.MethodFile {
		return "clipboard unavailable, wrote " + res.FilePath
	}
	return fmt.Sprintf("copied %s (%s)", sum.UUID, res.Method)
}

func (m *Model) current() (crash.Summary, bool) {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		return crash.Summary{}, false
	}
	return m.summaries[m.filtered[m.selected]], true
}

// applyFilter recomputes the visible set. Empty query shows everything
// in store order (newest first).
func (m *Model) applyFilter(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		m.filtered = make([]int, len(m.summaries))
		for i := range m.summaries {
			m.filtered[i] = i
		}
		m.selected = 0
		return
	}

	haystack := make([]string, len(m.summaries))
	for i, s := range m.summaries {
		haystack[i] = searchKey(s)
	}
	matches := fuzzy.Find(query, haystack)
	m.filtered = make([]int, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.Index
	}
	m.selected = 0
}

// searchKey is the text the fuzzy filter matches against.
func searchKey(s crash.Summary) string {
	return strings.Join([]string{s.UUID, s.Signame, s.Message}, " ")
}

// View implements tea.Model.
func (m Model) View() string {
	if m.mode == modeDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" Crash Reports"))
	sb.WriteString(dimStyle.Render(fmt.Sprintf(" (%d/%d)", len(m.filtered), len(m.summaries))))
	sb.WriteString("\n")

	if m.filtering || m.filter.Value() != "" {
		sb.WriteString(statusStyle.Render("> "))
		sb.WriteString(m.filter.View())
		sb.WriteString("\n")
	}

	if len(m.filtered) == 0 {
		sb.WriteString(dimStyle.Render("  no reports"))
		sb.WriteString("\n")
	}

	maxShow := m.height - 6
	if maxShow < 5 {
		maxShow = 5
	}
	start := 0
	if m.selected >= maxShow {
		start = m.selected - maxShow + 1
	}
	end := start + maxShow
	if end > len(m.filtered) {
		end = len(m.filtered)
	}

	for i := start; i < end; i++ {
		line := listLine(m.summaries[m.filtered[i]])
		if i == m.selected {
			sb.WriteString(selectedStyle.Render("❯ " + line))
		} else {
			sb.WriteString("  " + itemStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(statusStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("↑↓ navigate · / filter · enter detail · c copy · q quit"))
	return sb.String()
}

func (m Model) viewDetail() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" " + m.detailID))
	sb.WriteString("\n")
	sb.WriteString(m.detail.View())
	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(statusStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("↑↓ scroll · c copy · esc back · ctrl+c quit"))
	return sb.String()
}

// listLine formats one archive row.
func listLine(s crash.Summary) string {
	ts := "-"
	if !s.Timestamp.IsZero() {
		ts = s.Timestamp.Local().Format("2006-01-02 15:04:05")
	}
	tag := dimStyle.Render("no-crash")
	if s.IsCrash {
		tag = crashStyle.Render(s.Signame)
		if s.Incomplete {
			tag += " " + partialStyle.Render("partial")
		}
	}
	return fmt.Sprintf("%s  %s  %s  pid %d", ts, shortID(s.UUID), tag, s.PID)
}

func shortID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

// renderDetail builds the plain-text detail pane.
func renderDetail(r *crash.Report) string {
	var sb strings.Builder
	sum := r.Summarize()
	fmt.Fprintf(&sb, "signal:     %s (%d)\n", sum.Signame, sum.Signum)
	fmt.Fprintf(&sb, "message:    %s\n", sum.Message)
	fmt.Fprintf(&sb, "pid:        %d\n", sum.PID)
	fmt.Fprintf(&sb, "timestamp:  %s\n", r.Timestamp)
	fmt.Fprintf(&sb, "incomplete: %v\n", r.Incomplete)
	if r.OSInfo.OSType != "" {
		fmt.Fprintf(&sb, "os:         %s %s (%s)\n", r.OSInfo.OSType, r.OSInfo.Version, r.OSInfo.Architecture)
	}

	if len(r.Error.Stack.Frames) > 0 {
		sb.WriteString("\nstack:\n")
		for i, f := range r.Error.Stack.Frames {
			name := f.IP
			if len(f.Names) > 0 && f.Names[0].Name != "" {
				name = f.Names[0].Name
			}
			fmt.Fprintf(&sb, "  #%-3d %s\n", i, name)
		}
	}

	if len(r.Counters) > 0 {
		sb.WriteString("\ncounters:\n")
		for name, v := range r.Counters {
			fmt.Fprintf(&sb, "  %s = %d\n", name, v)
		}
	}

	if len(r.Files) > 0 {
		sb.WriteString("\nattached files:\n")
		for name := range r.Files {
			fmt.Fprintf(&sb, "  %s\n", name)
		}
	}
	return sb.String()
}
