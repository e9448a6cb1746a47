// Package tui is an interactive terminal view of the range report.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/marvinr/internal/productivity"
	"github.com/christopherklint97/marvinr/internal/render"
)

// presets cycled with tab.
var presets = []int{7, 14, 30}

// Lines taken by the header and the help footer.
const chromeHeight = 4

type reportMsg struct {
	seq int
	out productivity.Outcome
}

type Dashboard struct {
	ctx      context.Context
	reporter *productivity.Reporter

	days     int
	seq      int // id of the newest load
	loading  bool
	out      productivity.Outcome
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

func NewDashboard(ctx context.Context, reporter *productivity.Reporter, days int) *Dashboard {
	if days <= 0 {
		days = productivity.DefaultDays
	}
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Dashboard{
		ctx:      ctx,
		reporter: reporter,
		days:     days,
		loading:  true,
		spinner:  s,
		viewport: viewport.New(0, 0),
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.load())
}

func (d *Dashboard) load() tea.Cmd {
	d.seq++
	seq, days := d.seq, d.days
	return func() tea.Msg {
		return reportMsg{
			seq: seq,
			out: d.reporter.BuildReport(d.ctx, productivity.RangeRequest{Days: days}),
		}
	}
}

func (d *Dashboard) reload(days int) tea.Cmd {
	d.days = days
	d.loading = true
	return tea.Batch(d.spinner.Tick, d.load())
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.viewport.Width = msg.Width
		d.viewport.Height = max(msg.Height-chromeHeight, 1)
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return d, tea.Quit
		case "r":
			return d, d.reload(d.days)
		case "c":
			d.reporter.Cache().Clear()
			return d, d.reload(d.days)
		case "+", "=":
			return d, d.reload(d.days + 1)
		case "-":
			if d.days > 1 {
				return d, d.reload(d.days - 1)
			}
			return d, nil
		case "tab":
			return d, d.reload(nextPreset(d.days))
		}

	case reportMsg:
		// A slower earlier load can land after a newer one.
		if msg.seq != d.seq {
			return d, nil
		}
		d.loading = false
		d.out = msg.out
		d.viewport.SetContent(d.content())
		d.viewport.GotoTop()
		return d, nil

	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

func (d *Dashboard) content() string {
	var b strings.Builder
	if err := render.Report(&b, d.out); err != nil {
		return err.Error()
	}
	return b.String()
}

func (d *Dashboard) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("marvinr") + " " + rangeStyle.Render(fmt.Sprintf("last %d days", d.days)))
	if s := d.out.Summary(); !d.loading && s != nil && s.EndDate != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s → %s", s.StartDate, s.EndDate)))
	}
	b.WriteString("\n\n")

	if d.loading {
		b.WriteString(d.spinner.View() + " Loading completions...\n")
	} else {
		b.WriteString(d.viewport.View() + "\n")
	}

	b.WriteString(helpStyle.Render("+/- days • tab 7/14/30 • r refresh • c clear cache • ↑/↓ scroll • q quit"))
	return b.String()
}

func nextPreset(days int) int {
	for _, p := range presets {
		if p > days {
			return p
		}
	}
	return presets[0]
}
