package tui

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragprompt/internal/service"
)

// Pipeline is the TUI-facing subset of the RAG service.
type Pipeline interface {
	BuildPrompt(ctx context.Context, req service.Request) (string, error)
	Generate(ctx context.Context, req service.Request) (service.Result, error)
}

const (
	fieldDocType = iota
	fieldInfo
	fieldCount
)

type resultMsg struct {
	text       string
	promptOnly bool
	err        error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx        context.Context
	pipeline   Pipeline
	path       string
	inputs     [fieldCount]textinput.Model
	focus      int
	spinner    spinner.Model
	viewport   viewport.Model
	running    bool
	promptOnly bool
	result     string
	status     string
	ready      bool
}

// New creates a TUI for generating documents from the file at path.
func New(ctx context.Context, pipeline Pipeline, path, defaultType string) Model {
	docType := textinput.New()
	docType.Prompt = "type> "
	docType.Placeholder = defaultType
	docType.Focus()

	info := textinput.New()
	info.Prompt = "info> "
	info.Placeholder = "additional information (optional)"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	return Model{
		ctx:      ctx,
		pipeline: pipeline,
		path:     path,
		inputs:   [fieldCount]textinput.Model{docType, info},
		spinner:  sp,
		viewport: viewport.New(0, 0),
		status:   "Enter to generate, Tab to switch field, Ctrl+P to toggle prompt-only.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + fieldCount + qh + 1 // header + file, status, inputs, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil

	case resultMsg:
		m.running = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.result = msg.text
			if msg.promptOnly {
				m.status = "Prompt built."
			} else {
				m.status = "Document generated."
			}
		}
		m.viewport.SetContent(m.renderResult())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.running {
				return m, nil
			}
			m.running = true
			m.status = "Indexing " + m.path + "..."
			return m, tea.Batch(m.spinner.Tick, m.run(m.request(), m.promptOnly))
		case "tab", "shift+tab":
			m.inputs[m.focus].Blur()
			if msg.String() == "tab" {
				m.focus = (m.focus + 1) % fieldCount
			} else {
				m.focus = (m.focus + fieldCount - 1) % fieldCount
			}
			return m, m.inputs[m.focus].Focus()
		case "ctrl+p":
			m.promptOnly = !m.promptOnly
			return m, nil
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) request() service.Request {
	return service.Request{
		Path:           m.path,
		FileName:       m.path,
		DocumentType:   strings.TrimSpace(m.inputs[fieldDocType].Value()),
		AdditionalInfo: strings.TrimSpace(m.inputs[fieldInfo].Value()),
	}
}

// run executes one pipeline request off the UI goroutine.
func (m Model) run(req service.Request, promptOnly bool) tea.Cmd {
	ctx, pipeline := m.ctx, m.pipeline
	return func() tea.Msg {
		if promptOnly {
			p, err := pipeline.BuildPrompt(ctx, req)
			return resultMsg{text: p, promptOnly: true, err: err}
		}
		res, err := pipeline.Generate(ctx, req)
		return resultMsg{text: res.GeneratedText, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	mode := "generate"
	if m.promptOnly {
		mode = "prompt only"
	}
	header := headerStyle.Render("ragprompt") + "  " + dimStyle.Render("mode: "+mode)
	file := dimStyle.Render(m.path)
	fields := make([]string, fieldCount)
	for i := range m.inputs {
		fields[i] = m.inputs[i].View()
	}
	input := queryBoxStyle.Render(strings.Join(fields, "\n"))
	status := statusStyle.Render(m.status)
	if m.running {
		status = m.spinner.View() + " " + status
	}
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + file + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.result == "" {
		return "Nothing generated yet."
	}
	return highlightHeadings(m.result)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	headingRe      = regexp.MustCompile(`(?m)^#{1,6} .*$`)
)

// highlightHeadings renders markdown heading lines, such as the prompt's
// section titles, in the highlight style.
func highlightHeadings(text string) string {
	return headingRe.ReplaceAllStringFunc(text, func(h string) string {
		return highlightStyle.Render(h)
	})
}
