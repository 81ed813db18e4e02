// Package tui provides the interactive Bubble Tea query console for timeq.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
	"github.com/theirongolddev/timeq/internal/query"
	"github.com/theirongolddev/timeq/internal/store"
	"github.com/theirongolddev/timeq/internal/tui/theme"
)

const historyLimit = 50

// DataLoadedMsg is sent when the data pipeline finishes.
type DataLoadedMsg struct {
	Entries  []model.TimeEntry
	Files    int
	Version  string
	LoadTime time.Duration
	Err      error
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// App is the root Bubble Tea model.
type App struct {
	cfg     config.Config
	dataDir string
	useDB   bool

	// Data
	entries  []model.TimeEntry
	files    int
	version  string
	loaded   bool
	loadTime time.Duration
	loadErr  error

	queries *query.Cache
	memo    *pipeline.Memo

	// UI state
	width    int
	height   int
	input    textinput.Model
	output   viewport.Model
	spinner  spinner.Model
	progress int
	total    int
	loadSub  chan tea.Msg

	history []string
	histPos int // len(history) when not browsing

	lastQuery string
	lastErr   error
}

// NewApp creates the console over dataDir. useCache enables the sqlite
// entry cache.
func NewApp(dataDir string, cfg config.Config, useCache bool) App {
	ti := textinput.New()
	ti.Placeholder = "WHERE year = 2024 VIEW full CHART trend"
	ti.Prompt = "timeq> "
	ti.CharLimit = 1024
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	queries := query.NewCache()
	return App{
		cfg:     cfg,
		dataDir: dataDir,
		useDB:   useCache,
		queries: queries,
		memo:    pipeline.NewMemo(queries),
		input:   ti,
		output:  viewport.New(80, 20),
		spinner: sp,
		loadSub: make(chan tea.Msg, 16),
	}
}

// Init starts the spinner and the first load.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, textinput.Blink, loadDataCmd(a.dataDir, a.useDB, a.loadSub))
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.input.Width = msg.Width - len(a.input.Prompt) - 2
		a.output.Width = msg.Width
		a.output.Height = max(msg.Height-5, 3)
		a.rerender()
		return a, nil

	case ProgressMsg:
		a.progress, a.total = msg.Current, msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case DataLoadedMsg:
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.entries = msg.Entries
			a.files = msg.Files
			a.version = msg.Version
			a.memo.Invalidate()
		}
		a.rerender()
		return a, nil

	case spinner.TickMsg:
		if a.loaded {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return a, tea.Quit
		case tea.KeyEnter:
			a.submit(a.input.Value())
			return a, nil
		case tea.KeyUp:
			a.browseHistory(-1)
			return a, nil
		case tea.KeyDown:
			a.browseHistory(1)
			return a, nil
		case tea.KeyCtrlR:
			if !a.loaded {
				return a, nil
			}
			a.loaded = false
			a.progress, a.total = 0, 0
			return a, tea.Batch(a.spinner.Tick, loadDataCmd(a.dataDir, a.useDB, a.loadSub))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			a.output, cmd = a.output.Update(msg)
			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit runs text and records it in history.
func (a *App) submit(text string) {
	text = strings.TrimSpace(text)
	a.lastQuery = text
	if text != "" && (len(a.history) == 0 || a.history[len(a.history)-1] != text) {
		a.history = append(a.history, text)
		if len(a.history) > historyLimit {
			a.history = a.history[len(a.history)-historyLimit:]
		}
	}
	a.histPos = len(a.history)
	a.input.SetValue("")
	a.rerender()
}

func (a *App) browseHistory(step int) {
	if len(a.history) == 0 {
		return
	}
	a.histPos += step
	if a.histPos < 0 {
		a.histPos = 0
	}
	if a.histPos >= len(a.history) {
		a.histPos = len(a.history)
		a.input.SetValue("")
		return
	}
	a.input.SetValue(a.history[a.histPos])
	a.input.CursorEnd()
}

// rerender recomputes the output pane for the last query.
func (a *App) rerender() {
	if !a.loaded {
		return
	}
	if a.loadErr != nil {
		a.output.SetContent(cli.RenderQueryError("", a.loadErr))
		return
	}

	exec := config.ExecutorConfig(a.cfg, time.Now())
	pd, err := a.memo.Run(a.lastQuery, a.version, a.entries, exec)
	a.lastErr = err
	if err != nil {
		a.output.SetContent(cli.RenderQueryError(a.lastQuery, err))
		return
	}
	spec, _ := a.queries.Compile(a.lastQuery)
	a.output.SetContent(cli.RenderReport(spec, pd, cli.Options{
		Currency:    a.cfg.General.CurrencySymbol,
		DefaultRate: a.cfg.Project.DefaultRate,
		Width:       max(a.width/2, 20),
	}))
	a.output.GotoTop()
}

// View renders the console.
func (a App) View() string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	if !a.loaded {
		status := "Loading entries..."
		if a.total > 0 {
			status = fmt.Sprintf("Parsing %d/%d files...", a.progress, a.total)
		}
		b.WriteString("\n  " + a.spinner.View() + " " + muted.Render(status) + "\n")
		return b.String()
	}

	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(a.output.View())
	b.WriteString("\n")
	b.WriteString(dim.Render(a.statusLine()))
	return b.String()
}

func (a App) statusLine() string {
	st := a.memo.Stats()
	return fmt.Sprintf(" %d entries in %d files  |  loaded in %s  |  memo %d hit / %d miss  |  enter run  up/down history  ctrl+r reload  esc quit",
		len(a.entries), a.files, a.loadTime.Round(time.Millisecond), st.Hits, st.Misses)
}

// loadDataCmd starts the data loading pipeline in a background goroutine.
// It streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(dataDir string, useCache bool, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send so workers aren't stalled.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			if useCache {
				cache, err := store.Open(pipeline.CachePath())
				if err == nil {
					cr, loadErr := pipeline.LoadWithCache(dataDir, cache, progressFn)
					_ = cache.Close()
					if loadErr == nil {
						sub <- DataLoadedMsg{
							Entries:  cr.Entries,
							Files:    cr.TotalFiles,
							Version:  cr.Version,
							LoadTime: time.Since(start),
						}
						return
					}
				}
			}

			result, err := pipeline.Load(dataDir, progressFn)
			if err != nil {
				sub <- DataLoadedMsg{LoadTime: time.Since(start), Err: err}
				return
			}
			sub <- DataLoadedMsg{
				Entries:  result.Entries,
				Files:    result.TotalFiles,
				Version:  result.Version,
				LoadTime: time.Since(start),
			}
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}
