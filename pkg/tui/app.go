// Package tui is the terminal dashboard for a bonsai node. Key presses are
// turned into controller messages and every controller update is rendered
// from a runtime observer.
package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/node"
	"github.com/salahayoub/bonsai/pkg/util"
)

// KeyEvent represents a keyboard event.
type KeyEvent struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

// Sender posts messages to the controller loop. *node.Runtime satisfies it.
type Sender interface {
	Send(msg node.Message)
}

// Options configures an App.
type Options struct {
	Network string
	// Screen is used instead of the real terminal when set.
	Screen tcell.Screen
	// ASCII replaces unicode status symbols.
	ASCII bool
}

// App is the main TUI application controller.
type App struct {
	sender Sender
	view   *View
	screen tcell.Screen

	keyChan chan KeyEvent
	redraw  chan struct{}

	mu    sync.RWMutex
	model *Model

	// action key debouncing
	lastKeyTime time.Time
	lastRune    rune
}

// NewApp creates a new TUI application.
func NewApp(sender Sender, opts Options) *App {
	return &App{
		sender:  sender,
		view:    NewView(!opts.ASCII),
		screen:  opts.Screen,
		keyChan: make(chan KeyEvent, 10),
		redraw:  make(chan struct{}, 1),
		model:   NewModel(opts.Network),
	}
}

// Observer returns the runtime observer that snapshots ctrl after each
// update. Ticks that changed nothing visible do not trigger a redraw.
func (a *App) Observer(ctrl *node.Controller) node.Observer {
	return func(msg node.Message) {
		a.mu.Lock()
		prev := a.model.Snapshot
		if _, tick := msg.(node.Tick); tick && !prev.stale(ctrl) {
			a.mu.Unlock()
			return
		}
		a.model.Snapshot = TakeSnapshot(ctrl, prev)
		a.syncLocked(msg)
		a.mu.Unlock()
		a.requestRedraw()
	}
}

// syncLocked folds controller outcomes back into the local input state.
func (a *App) syncLocked(msg node.Message) {
	switch m := msg.(type) {
	case node.PeerConnected:
		if m.Accepted && a.model.PeerDraft == m.Addr {
			a.model.PeerDraft = ""
		}
	case node.AccumulatorCopied:
		a.model.CommandOutput = "accumulator data copied to clipboard"
	}
	if n := len(a.model.Peers()); a.model.SelectedPeer >= n {
		a.model.SelectedPeer = max(n-1, 0)
	}
}

func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

// Run starts the TUI main loop and returns once finished is closed or ctx
// is done. Quitting from the keyboard or a signal only asks the controller
// to close; the dashboard keeps rendering the shutdown until it finishes.
func (a *App) Run(ctx context.Context, finished <-chan struct{}) error {
	if a.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		a.screen = screen
	}
	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	a.screen.DisableMouse()
	a.screen.Clear()

	a.mu.Lock()
	a.model.Width, a.model.Height = a.screen.Size()
	a.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	stop := make(chan struct{})
	polled := make(chan struct{})
	util.SafeGoWithName("tui-events", func() {
		defer close(polled)
		a.pollEvents(stop)
	})
	defer func() {
		close(stop)
		a.screen.Fini()
		<-polled
	}()

	a.render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-finished:
			return nil
		case <-sigChan:
			a.mu.Lock()
			a.requestCloseLocked()
			a.mu.Unlock()
			a.render()
		case event := <-a.keyChan:
			a.handleKeyEvent(event)
			a.render()
		case <-a.redraw:
			a.render()
		}
	}
}

// pollEvents polls for terminal events and sends them to the key channel.
// It returns when the screen is finalized or stop is closed.
func (a *App) pollEvents(stop <-chan struct{}) {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}

		switch e := ev.(type) {
		case *tcell.EventKey:
			select {
			case a.keyChan <- KeyEvent{Key: e.Key(), Rune: e.Rune(), Mod: e.Modifiers()}:
			case <-stop:
				return
			}
		case *tcell.EventResize:
			w, h := e.Size()
			a.mu.Lock()
			a.model.Width, a.model.Height = w, h
			a.mu.Unlock()
			a.screen.Sync()
			a.requestRedraw()
		}
	}
}

// render draws the current state to the screen.
func (a *App) render() {
	a.mu.RLock()
	output := a.view.Render(a.model)
	kind := a.model.Status().Kind
	sync := CurrentStyles.Normal
	if a.model.Snapshot != nil && a.model.Snapshot.Stats != nil {
		st := a.model.Snapshot.Stats
		sync = SyncStyle(Remaining(st.HeaderHeight, st.ValidatedHeight))
	}
	a.mu.RUnlock()

	paint(a.screen, strings.Split(output, "\n"), func(row int, line string) tcell.Style {
		if strings.Contains(line, "Sync:") {
			return sync
		}
		return lineStyle(row, line, kind)
	})
	a.screen.Show()
}

func lineStyle(row int, line string, kind node.StatusKind) tcell.Style {
	switch {
	case row == 0:
		return CurrentStyles.Header(kind)
	case row == 1:
		return CurrentStyles.Tabs
	case strings.HasPrefix(line, "Error:"), strings.Contains(line, "Last error:"):
		return CurrentStyles.Error
	case strings.HasPrefix(line, "╔"), strings.HasPrefix(line, "╚"):
		return CurrentStyles.Border
	}
	return CurrentStyles.Normal
}

// GetModel returns a copy of the current model (for testing).
func (a *App) GetModel() Model {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.model
}

// handleKeyEvent processes a keyboard event, updating local state and
// posting controller messages.
func (a *App) handleKeyEvent(event KeyEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.model

	if event.Key == tcell.KeyCtrlC {
		a.requestCloseLocked()
		return
	}

	input := m.input()
	if event.Key == tcell.KeyRune && event.Rune == 'q' && (input == nil || *input == "") {
		a.requestCloseLocked()
		return
	}

	switch event.Key {
	case tcell.KeyTab:
		if event.Mod&tcell.ModShift != 0 {
			m.PrevPanel()
		} else {
			m.NextPanel()
		}
		return
	case tcell.KeyBacktab:
		m.PrevPanel()
		return
	}

	if input != nil {
		a.handleInputLocked(event, input)
		return
	}
	if event.Key == tcell.KeyRune {
		a.handleActionLocked(event.Rune)
	}
}

// handleActionLocked runs a single-key action on panels without a text
// field. Repeats of the same key within 200ms are dropped.
func (a *App) handleActionLocked(r rune) {
	now := time.Now()
	if now.Sub(a.lastKeyTime) < 200*time.Millisecond && a.lastRune == r {
		return
	}
	a.lastKeyTime = now
	a.lastRune = r

	m := a.model
	st := m.Status()
	m.ErrorMessage = ""

	switch r {
	case 's':
		if !st.CanStart() {
			m.ErrorMessage = fmt.Sprintf("cannot start while %s", st.Kind)
			return
		}
		a.sender.Send(node.Start{})
	case 'x':
		if !st.CanStop() {
			m.ErrorMessage = fmt.Sprintf("cannot stop while %s", st.Kind)
			return
		}
		a.sender.Send(node.Shutdown{})
	case 'r':
		if !st.CanRestart() {
			m.ErrorMessage = fmt.Sprintf("cannot restart while %s", st.Kind)
			return
		}
		a.sender.Send(node.Restart{})
	case 'c':
		a.sender.Send(node.ClearLogs{})
	case 'y':
		a.sender.Send(node.CopyAccumulatorData{})
	default:
		if r >= '1' && r <= '0'+rune(PanelCount) {
			m.Focus(PanelType(r - '1'))
		}
	}
}

// handleInputLocked edits the active panel's text field.
func (a *App) handleInputLocked(event KeyEvent, input *string) {
	m := a.model

	switch event.Key {
	case tcell.KeyEnter:
		a.submitLocked()
		return
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(*input); len(r) > 0 {
			*input = string(r[:len(r)-1])
		}
	case tcell.KeyEscape:
		*input = ""
		m.ErrorMessage = ""
	case tcell.KeyRune:
		*input += string(event.Rune)
	case tcell.KeyUp:
		if m.ActivePanel == PanelP2P && m.SelectedPeer > 0 {
			m.SelectedPeer--
		}
		return
	case tcell.KeyDown:
		if m.ActivePanel == PanelP2P && m.SelectedPeer < len(m.Peers())-1 {
			m.SelectedPeer++
		}
		return
	case tcell.KeyDelete:
		if peers := m.Peers(); m.ActivePanel == PanelP2P && m.SelectedPeer < len(peers) {
			a.sender.Send(node.DisconnectPeer{Addr: peers[m.SelectedPeer].Address})
		}
		return
	default:
		return
	}

	switch m.ActivePanel {
	case PanelP2P:
		a.sender.Send(node.AddPeerInputChanged{Input: m.PeerDraft})
	case PanelBlocks:
		a.sender.Send(node.BlockHeightInputChanged{Input: m.BlockDraft})
	}
}

func (a *App) submitLocked() {
	m := a.model
	switch m.ActivePanel {
	case PanelP2P:
		a.sender.Send(node.AddPeer{})
	case PanelBlocks:
		a.sender.Send(node.SubmitBlockHeight{})
	case PanelCommand:
		a.executeCommandLocked()
	}
}

// executeCommandLocked parses and executes the current command input.
func (a *App) executeCommandLocked() {
	m := a.model
	input := m.CommandInput
	if strings.TrimSpace(input) == "" {
		return
	}

	cmd, err := ParseCommand(input)
	if err != nil {
		m.ErrorMessage = err.Error()
		m.CommandOutput = ""
		return
	}

	for _, msg := range cmd.Messages() {
		a.sender.Send(msg)
	}
	m.CommandOutput = "sent " + cmd.Type.String()
	m.ErrorMessage = ""
	m.CommandInput = ""
	logging.Debug("command executed", logging.Component("tui"), "command", input)
}

func (a *App) requestCloseLocked() {
	if a.model.Closing {
		return
	}
	a.model.Closing = true
	a.sender.Send(node.CloseRequested{})
}
