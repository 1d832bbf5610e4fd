package lists

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jfcl7/jcblock/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	view   func(styles) string
	styles styles
	output string
}

func newModel(view func(styles) string) model {
	return model{
		view:   view,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render draws list with its match history and purge age.
func Render(list *domain.PatternList, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderList(list, opts, s)
	})
}

// RenderCallers draws a frequent-caller report.
func RenderCallers(callers []domain.CallerCount, days int) (string, error) {
	return run(func(s styles) string {
		return renderCallers(callers, days, s)
	})
}

func run(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
