// Package dmg wires the CPU, memory, video and audio components into a
// runnable emulator core. Frontends drive it a frame at a time and read
// the framebuffer and audio buffer out between frames.
package dmg

import (
	"fmt"
	"log/slog"

	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/audio"
	"github.com/dcanelhas/go-dmg/dmg/bit"
	"github.com/dcanelhas/go-dmg/dmg/cpu"
	"github.com/dcanelhas/go-dmg/dmg/memory"
	"github.com/dcanelhas/go-dmg/dmg/serial"
	"github.com/dcanelhas/go-dmg/dmg/video"
)

// Key identifies one of the eight joypad inputs.
type Key = memory.JoypadKey

// Joypad keys, re-exported for frontends.
const (
	KeyRight  = memory.JoypadRight
	KeyLeft   = memory.JoypadLeft
	KeyUp     = memory.JoypadUp
	KeyDown   = memory.JoypadDown
	KeyA      = memory.JoypadA
	KeyB      = memory.JoypadB
	KeySelect = memory.JoypadSelect
	KeyStart  = memory.JoypadStart
)

// Option configures an Emulator at construction time.
type Option func(*Emulator)

// WithLogger routes the core's log output through the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emulator) { e.logger = logger }
}

// WithSerialTiming makes serial transfers take the 8192 Hz clock into
// account instead of completing immediately.
func WithSerialTiming() Option {
	return func(e *Emulator) { e.serialTiming = true }
}

// Emulator owns the full machine state for one DMG instance.
type Emulator struct {
	cpu    *cpu.CPU
	gpu    *video.GPU
	mmu    *memory.MMU
	serial *serial.LogSink

	logger       *slog.Logger
	serialTiming bool
	frameReady   bool
}

// New builds an emulator around a ROM image, in the post-boot state.
func New(romData []byte, opts ...Option) (*Emulator, error) {
	cart, err := memory.NewCartridge(romData)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	e := &Emulator{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	e.mmu = memory.New(cart)

	sinkOpts := []serial.LogSinkOption{serial.WithLogger(e.logger)}
	if e.serialTiming {
		sinkOpts = append(sinkOpts, serial.WithFixedTiming())
	}
	e.serial = serial.NewLogSink(func() {
		e.mmu.RequestInterrupt(addr.SerialInterrupt)
	}, sinkOpts...)
	e.mmu.SetSerialPort(e.serial)

	e.gpu = video.NewGpu(e.mmu)
	e.cpu = cpu.New(e.mmu)

	e.logger.Info("cartridge loaded",
		"title", cart.Title(),
		"mapper", cart.Type().String(),
		"rom", len(romData))

	return e, nil
}

// Step executes one CPU instruction (or services one interrupt) and
// advances every other component by the cycles it took. Returns the
// cycle count.
func (e *Emulator) Step() (int, error) {
	cycles, err := e.cpu.Exec()

	e.mmu.Tick(cycles)
	if e.gpu.Tick(cycles) {
		e.frameReady = true
	}
	e.mmu.APU.Tick(cycles)

	return cycles, err
}

// RunUntilFrame steps the machine until the PPU completes a frame,
// about 70224 cycles of emulated time.
func (e *Emulator) RunUntilFrame() error {
	e.frameReady = false
	for !e.frameReady {
		if _, err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Framebuffer returns the most recently completed frame. The buffer is
// owned by the PPU and is overwritten as emulation advances.
func (e *Emulator) Framebuffer() *video.FrameBuffer {
	return e.gpu.Framebuffer()
}

// DrainAudioSamples returns and clears the interleaved stereo samples
// generated since the last call.
func (e *Emulator) DrainAudioSamples() []int16 {
	return e.mmu.APU.DrainSamples()
}

// PendingAudioSamples reports how many samples are buffered.
func (e *Emulator) PendingAudioSamples() int {
	return e.mmu.APU.PendingSamples()
}

// ToggleAudioChannel mutes or unmutes one of the four channels (1-4).
func (e *Emulator) ToggleAudioChannel(channel int) {
	e.mmu.APU.ToggleChannel(channel)
}

// PressKey registers a joypad key going down.
func (e *Emulator) PressKey(key Key) {
	e.mmu.HandleKeyPress(key)
}

// ReleaseKey registers a joypad key going up.
func (e *Emulator) ReleaseKey(key Key) {
	e.mmu.HandleKeyRelease(key)
}

// PollSerial pops the oldest byte sent over the serial port, if any.
func (e *Emulator) PollSerial() (byte, bool) {
	return e.serial.Poll()
}

// DumpSaveRAM snapshots battery-backed cartridge RAM. Nil when the
// cartridge has none.
func (e *Emulator) DumpSaveRAM() []byte {
	return e.mmu.DumpSaveRAM()
}

// LoadSaveRAM restores a snapshot taken by DumpSaveRAM.
func (e *Emulator) LoadSaveRAM(data []byte) error {
	return e.mmu.LoadSaveRAM(data)
}

// ReadMemory reads a byte from the CPU address space, with all MMIO
// side effects of a real read.
func (e *Emulator) ReadMemory(address uint16) byte {
	return e.mmu.Read(address)
}

// WriteMemory writes a byte into the CPU address space.
func (e *Emulator) WriteMemory(address uint16, value byte) {
	e.mmu.Write(address, value)
}

// ReadRegister returns a CPU register by name ("a", "hl", "pc", ...).
func (e *Emulator) ReadRegister(name string) (uint16, error) {
	return e.cpu.ReadRegister(name)
}

// WriteRegister sets a CPU register by name.
func (e *Emulator) WriteRegister(name string, value uint16) error {
	return e.cpu.WriteRegister(name, value)
}

// RequestInterrupt raises an interrupt line from the outside.
func (e *Emulator) RequestInterrupt(interrupt addr.Interrupt) {
	e.mmu.RequestInterrupt(interrupt)
}

// CartridgeTitle returns the title parsed from the ROM header.
func (e *Emulator) CartridgeTitle() string {
	return e.mmu.Cartridge().Title()
}

// DebugState is a snapshot of machine state for debuggers and the
// frontend overlay.
type DebugState struct {
	AF, BC, DE, HL uint16
	SP, PC         uint16
	Flags          string
	IME            bool
	Halted         bool
	IE, IF         uint8
	Cycles         uint64
	LY             uint8
	PPUMode        video.GpuMode
	NextOpcode     string
}

// DebugSnapshot captures the current machine state.
func (e *Emulator) DebugSnapshot() DebugState {
	pc := e.cpu.GetPC()
	op := uint16(e.mmu.Read(pc))
	if op == 0xCB {
		op = bit.Combine(0xCB, e.mmu.Read(pc+1))
	}

	af, _ := e.cpu.ReadRegister("af")
	bc, _ := e.cpu.ReadRegister("bc")
	de, _ := e.cpu.ReadRegister("de")
	hl, _ := e.cpu.ReadRegister("hl")

	return DebugState{
		AF:         af,
		BC:         bc,
		DE:         de,
		HL:         hl,
		SP:         e.cpu.GetSP(),
		PC:         pc,
		Flags:      e.cpu.GetFlagString(),
		IME:        e.cpu.GetIME(),
		Halted:     e.cpu.IsHalted(),
		IE:         e.cpu.GetIE(),
		IF:         e.cpu.GetIF(),
		Cycles:     e.cpu.GetCycles(),
		LY:         e.mmu.Read(addr.LY),
		PPUMode:    e.gpu.Mode(),
		NextOpcode: cpu.GetOpcodeName(op),
	}
}

// SampleRate is the audio output rate in Hz.
const SampleRate = audio.SampleRate
