// Package tui is the interactive query interface over a corpus snapshot.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chronicle-rag/internal/domain"
)

// QueryPort is the TUI-facing subset of the retriever.
type QueryPort interface {
	Retrieve(ctx context.Context, question string, topK int, languages []string) ([]domain.ScoredChunk, error)
}

// languageFilters are the filter states ctrl+f cycles through; nil means no
// filter.
var languageFilters = [][]string{
	nil,
	{"en"},
	{"la"},
	{"fr"},
	{"ar"},
	{"el"},
	{"hy"},
}

// Model is the Bubble Tea model for the query UI.
type Model struct {
	retriever QueryPort
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.ScoredChunk
	summary   string
	status    string
	cursor    int
	filterIdx int
	ready     bool
	lastQuery string
}

// New creates a new query UI over the given retriever. summary is shown
// under the header, typically the corpus size and embedding model.
func New(retriever QueryPort, summary string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the Kingdom of Jerusalem and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		retriever: retriever,
		topK:      topK,
		input:     ti,
		viewport:  vp,
		summary:   summary,
		status:    "Loaded. Type to search. Ctrl+F cycles the language filter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2
		totalFooterLines := 1
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m = m.runQuery(q)
				return m, nil
			}
		case "ctrl+f":
			m.filterIdx = (m.filterIdx + 1) % len(languageFilters)
			m.status = "Language filter: " + m.filterLabel()
			if m.lastQuery != "" {
				m = m.runQuery(m.lastQuery)
			}
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runQuery(q string) Model {
	res, err := m.retriever.Retrieve(context.Background(), q, m.topK, m.filter())
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
	} else {
		m.status = fmt.Sprintf("Results for %q [filter: %s]", q, m.filterLabel())
		m.results = res
		m.cursor = 0
		m.lastQuery = q
	}
	m.viewport.SetContent(m.renderCurrentResult())
	return m
}

func (m Model) filter() []string { return languageFilters[m.filterIdx] }

func (m Model) filterLabel() string {
	f := m.filter()
	if len(f) == 0 {
		return "all languages"
	}
	names := make([]string, len(f))
	for i, code := range f {
		names[i] = domain.LanguageFlag(code) + " " + domain.LanguageName(code)
	}
	return strings.Join(names, ", ")
}

// View renders the UI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chronicle Search")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	chunk := r.Chunk

	title := fmt.Sprintf("Result %d/%d  %s %s  score=%.3f",
		m.cursor+1, len(m.results),
		domain.LanguageFlag(chunk.Language), domain.LanguageName(chunk.Language), r.Score)
	var meta []string
	if chunk.Title != "" {
		meta = append(meta, chunk.Title)
	}
	if chunk.Author != "" {
		meta = append(meta, chunk.Author)
	}
	meta = append(meta, chunk.SourceRepository)
	if chunk.IsTranslation {
		meta = append(meta, fmt.Sprintf("translated from %s", domain.LanguageName(chunk.OriginalLanguage)))
	}

	head := title + "\n" + metaStyle.Render(strings.Join(meta, " | ")) + "\n" + metaStyle.Render(chunk.ChunkID)
	return head + "\n\n" + chunk.Text
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
