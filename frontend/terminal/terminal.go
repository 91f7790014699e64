// Package terminal renders the emulator into a tcell screen, two
// pixels per character cell using half blocks. Terminals report key
// presses but not releases, so held keys are modelled with a short
// expiry window.
package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dcanelhas/go-dmg/dmg"
	"github.com/dcanelhas/go-dmg/dmg/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	frameTime = time.Second / 60

	// a held key repeats faster than this on every terminal tried
	keyTimeout = 100 * time.Millisecond
)

var shadeColors = [4]tcell.Color{
	tcell.ColorWhite,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlack,
}

var keyBindings = map[rune]dmg.Key{
	'w': dmg.KeyUp,
	'a': dmg.KeyLeft,
	's': dmg.KeyDown,
	'd': dmg.KeyRight,
	'z': dmg.KeyA,
	'x': dmg.KeyB,
	'n': dmg.KeySelect,
	'm': dmg.KeyStart,
}

var specialBindings = map[tcell.Key]dmg.Key{
	tcell.KeyUp:    dmg.KeyUp,
	tcell.KeyDown:  dmg.KeyDown,
	tcell.KeyLeft:  dmg.KeyLeft,
	tcell.KeyRight: dmg.KeyRight,
	tcell.KeyEnter: dmg.KeyStart,
}

// Frontend owns the tcell screen and drives one emulator instance.
type Frontend struct {
	emu    *dmg.Emulator
	screen tcell.Screen

	running   bool
	paused    bool
	showDebug bool

	keyStates  map[dmg.Key]time.Time
	activeKeys map[dmg.Key]bool
}

// New wraps an emulator for terminal display.
func New(emu *dmg.Emulator) *Frontend {
	return &Frontend{
		emu:        emu,
		keyStates:  make(map[dmg.Key]time.Time),
		activeKeys: make(map[dmg.Key]bool),
	}
}

// Run enters the frame loop and blocks until quit.
func (f *Frontend) Run() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	f.screen = screen
	f.running = true
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	screen.Clear()

	go f.handleSignals()

	for f.running {
		start := time.Now()

		f.pollInput()
		f.applyKeyStates()

		if !f.paused {
			if err := f.emu.RunUntilFrame(); err != nil {
				return err
			}
		}

		// audio has no terminal sink; drop the buffer so it does not
		// grow while the game runs
		f.emu.DrainAudioSamples()

		f.render()
		screen.Show()

		if elapsed := time.Since(start); elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
	}

	return nil
}

func (f *Frontend) handleSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	f.running = false
}

func (f *Frontend) pollInput() {
	now := time.Now()
	for f.screen.HasPendingEvent() {
		switch ev := f.screen.PollEvent().(type) {
		case *tcell.EventResize:
			f.screen.Sync()
		case *tcell.EventKey:
			f.handleKey(ev, now)
		}
	}
}

func (f *Frontend) handleKey(ev *tcell.EventKey, now time.Time) {
	if key, ok := specialBindings[ev.Key()]; ok {
		f.keyStates[key] = now
		return
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		f.running = false
		return
	case tcell.KeyRune:
	default:
		return
	}

	r := ev.Rune()
	if key, ok := keyBindings[r]; ok {
		f.keyStates[key] = now
		return
	}

	switch r {
	case 'q':
		f.running = false
	case 'p', ' ':
		f.paused = !f.paused
	case 'i':
		f.showDebug = !f.showDebug
	case '1', '2', '3', '4':
		f.emu.ToggleAudioChannel(int(r - '0'))
		slog.Info("toggled audio channel", "channel", int(r-'0'))
	}
}

// applyKeyStates turns the expiry-tracked key map into press and
// release calls on the emulator.
func (f *Frontend) applyKeyStates() {
	now := time.Now()
	current := make(map[dmg.Key]bool)

	for key, lastSeen := range f.keyStates {
		if now.Sub(lastSeen) >= keyTimeout {
			delete(f.keyStates, key)
			continue
		}
		current[key] = true
		if !f.activeKeys[key] {
			f.emu.PressKey(key)
		}
	}

	for key := range f.activeKeys {
		if !current[key] {
			f.emu.ReleaseKey(key)
		}
	}

	f.activeKeys = current
}

func (f *Frontend) render() {
	f.screen.Clear()
	f.drawFrame(f.emu.Framebuffer())
	if f.showDebug {
		f.drawDebugPanel(width + 2)
	}
	f.drawStatusLine()
}

// drawFrame maps two vertical pixels onto one cell with the upper
// half block glyph.
func (f *Frontend) drawFrame(frame *video.FrameBuffer) {
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			top := shadeColors[frame.GetPixel(x, y)]
			bottom := shadeColors[frame.GetPixel(x, y+1)]

			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			f.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}

func (f *Frontend) drawDebugPanel(startX int) {
	state := f.emu.DebugSnapshot()

	lines := []string{
		fmt.Sprintf("AF: 0x%04X  BC: 0x%04X", state.AF, state.BC),
		fmt.Sprintf("DE: 0x%04X  HL: 0x%04X", state.DE, state.HL),
		fmt.Sprintf("SP: 0x%04X  PC: 0x%04X", state.SP, state.PC),
		fmt.Sprintf("Flags: %s  IME: %v", state.Flags, state.IME),
		fmt.Sprintf("IE: 0x%02X  IF: 0x%02X", state.IE, state.IF),
		fmt.Sprintf("LY: %d  mode: %d", state.LY, state.PPUMode),
		fmt.Sprintf("Next: %s", state.NextOpcode),
		fmt.Sprintf("Cycles: %d", state.Cycles),
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	for i, line := range lines {
		f.drawText(startX, 1+i, line, style)
	}
}

func (f *Frontend) drawStatusLine() {
	_, termHeight := f.screen.Size()
	text := " wasd/arrows=d-pad z=A x=B m=start n=select | p=pause i=debug 1-4=audio q=quit "
	if f.paused {
		text = " PAUSED (p to resume) " + text
	}
	f.drawText(0, termHeight-1, text, tcell.StyleDefault.Foreground(tcell.ColorYellow))
}

func (f *Frontend) drawText(x, y int, text string, style tcell.Style) {
	termWidth, termHeight := f.screen.Size()
	if y < 0 || y >= termHeight {
		return
	}
	for i, ch := range text {
		if x+i >= termWidth {
			break
		}
		f.screen.SetContent(x+i, y, ch, nil, style)
	}
}
