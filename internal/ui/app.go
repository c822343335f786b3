package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/scanner"
	"github.com/sadopc/arqrel/internal/ui/components"
	"github.com/sadopc/arqrel/internal/ui/style"
)

// AppState represents the application state.
type AppState int

const (
	StateScanning AppState = iota
	StateCancelling
	StateDone
)

// ScanDoneMsg is sent when scanning completes.
type ScanDoneMsg struct {
	Report *model.Report
	Err    error
}

type tickMsg time.Time

// App is the Bubble Tea model shown while an inventory runs. It quits on
// its own once the scan finishes; the caller then reads Result.
type App struct {
	Root    string
	Scanner scanner.Scanner
	Options scanner.ScanOptions

	ctx        context.Context
	scanCtx    context.Context
	scanCancel context.CancelFunc

	state  AppState
	width  int
	height int
	layout style.Layout

	spinner spinner.Model
	help    help.Model
	keys    KeyMap
	theme   style.Theme

	scanProgress   scanner.Progress
	progressMu     sync.Mutex
	latestProgress scanner.Progress

	report *model.Report
	err    error
}

// NewApp creates an App that runs sc over root. Cancelling ctx stops the
// scan the same way the quit key does.
func NewApp(ctx context.Context, sc scanner.Scanner, root string, opts scanner.ScanOptions) *App {
	theme := style.DefaultTheme()
	return &App{
		Root:    root,
		Scanner: sc,
		Options: opts,
		ctx:     ctx,
		state:   StateScanning,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Secondary)),
		),
		help:  help.New(),
		keys:  DefaultKeyMap(),
		theme: theme,
	}
}

func (a *App) Init() tea.Cmd {
	a.scanCtx, a.scanCancel = context.WithCancel(a.ctx)
	// Start the scan, the spinner and the progress ticker together
	return tea.Batch(a.scanCmd(a.scanCtx), a.spinner.Tick, a.tickCmd())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = style.NewLayout(msg.Width, msg.Height)
		a.help.Width = msg.Width
		return a, nil

	case ScanDoneMsg:
		a.report = msg.Report
		a.err = msg.Err
		a.state = StateDone
		a.cancelScan()
		return a, tea.Quit

	case tickMsg:
		if a.state == StateDone {
			return a, nil
		}
		a.progressMu.Lock()
		a.scanProgress = a.latestProgress
		a.progressMu.Unlock()
		return a, a.tickCmd()

	case spinner.TickMsg:
		if a.state == StateDone {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.ForceQuit):
		a.cancelScan()
		if a.err == nil && a.state != StateDone {
			a.err = context.Canceled
		}
		a.state = StateDone
		return a, tea.Quit

	case key.Matches(msg, a.keys.Quit):
		if a.state == StateScanning {
			// Wait for ScanDoneMsg so the session has unwound.
			a.state = StateCancelling
			a.cancelScan()
		}
	}
	return a, nil
}

func (a *App) cancelScan() {
	if a.scanCancel != nil {
		a.scanCancel()
	}
}

func (a *App) View() string {
	if a.state == StateDone {
		return ""
	}
	if a.width == 0 {
		return "Loading..."
	}

	spin := a.spinner.View()
	if a.state == StateCancelling {
		spin = a.theme.WarningText.Render("cancelling")
	}
	box := components.RenderScanProgress(a.theme, a.layout, spin, a.Root, a.scanProgress)
	return a.layout.Center(lipgloss.JoinVertical(lipgloss.Center, box, a.help.View(a.keys)))
}

// Run shows the progress view on out until the scan ends and returns its
// result.
func Run(ctx context.Context, sc scanner.Scanner, root string, opts scanner.ScanOptions, out io.Writer) (*model.Report, error) {
	app := NewApp(ctx, sc, root, opts)
	if _, err := tea.NewProgram(app, tea.WithOutput(out)).Run(); err != nil {
		app.cancelScan()
		return nil, fmt.Errorf("progress view failed: %w", err)
	}
	return app.Result()
}

// Result returns the completed report, or the error that ended the scan.
func (a *App) Result() (*model.Report, error) {
	return a.report, a.err
}

// State reports where the app is in its lifecycle.
func (a *App) State() AppState { return a.state }

// scanCmd runs the scan in a background goroutine.
// Progress is communicated via a.latestProgress (mutex-protected).
func (a *App) scanCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		progressCh := make(chan scanner.Progress, 16)
		relayed := make(chan struct{})

		// Relay progress updates to shared state (read by tickMsg handler)
		go func() {
			defer close(relayed)
			for p := range progressCh {
				a.progressMu.Lock()
				a.latestProgress = p
				a.progressMu.Unlock()
			}
		}()

		opts := a.Options
		opts.Progress = progressCh
		report, err := a.Scanner.Scan(ctx, a.Root, opts)
		close(progressCh)
		<-relayed

		return ScanDoneMsg{Report: report, Err: err}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
