// Package brick is a cycle-driven emulation core for the original Game
// Boy. The DMG façade owns every subsystem and exposes the host API:
// feed it a cartridge and wall-clock budgets, read back frames, audio,
// save states and battery RAM.
package brick

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/andrep/go-brick/brick/cpu"
	"github.com/andrep/go-brick/brick/memory"
	"github.com/andrep/go-brick/brick/snapshot"
	"github.com/andrep/go-brick/brick/timing"
)

// Error kinds surfaced by the façade.
var (
	ErrUnsupportedCartridge = memory.ErrUnsupportedCartridge
	ErrMalformedHeader      = memory.ErrMalformedHeader
	ErrRAMSizeMismatch      = memory.ErrRAMSizeMismatch
	ErrInvalidInstruction   = cpu.ErrInvalidInstruction

	// ErrNoCartridge is returned by operations that need a loaded ROM.
	ErrNoCartridge = errors.New("no cartridge loaded")
	// ErrSnapshotVersionMismatch rejects snapshots from other versions.
	ErrSnapshotVersionMismatch = errors.New("snapshot version mismatch")
	// ErrSnapshotRomMismatch rejects snapshots taken from a different ROM.
	ErrSnapshotRomMismatch = errors.New("snapshot belongs to a different ROM")
)

// Button identifies one joypad input.
type Button = memory.JoypadKey

// Button values accepted by SetButton.
const (
	ButtonRight  = memory.JoypadRight
	ButtonLeft   = memory.JoypadLeft
	ButtonUp     = memory.JoypadUp
	ButtonDown   = memory.JoypadDown
	ButtonA      = memory.JoypadA
	ButtonB      = memory.JoypadB
	ButtonSelect = memory.JoypadSelect
	ButtonStart  = memory.JoypadStart
)

// CartridgeInfo describes a loaded ROM to the host.
type CartridgeInfo struct {
	// Title is the trimmed 11-byte header name.
	Title string
	// HeaderHash is a stable 32-bit hash of the full ROM image, usable
	// as a save-slot key.
	HeaderHash uint32
	// HasBattery is true when cartridge RAM survives power-off.
	HasBattery bool
}

// Options carries host preferences. Only Volume is interpreted by the
// core; the display options ride along for the host renderer.
type Options struct {
	// Palette maps the four shades to host colors. Display-only.
	Palette [4]uint32
	// Volume scales the mixed audio output, 0..1.
	Volume float64
	// Scanline and Glow are post-processing strengths. Display-only.
	Scanline float64
	Glow     float64
}

// DefaultOptions returns the options a fresh DMG starts with.
func DefaultOptions() Options {
	return Options{
		Palette: [4]uint32{0xE0F8D0, 0x88C070, 0x346856, 0x081820},
		Volume:  1.0,
	}
}

// DMG is the emulator: one cartridge, one machine. All methods must be
// called from a single goroutine; the core holds no locks.
type DMG struct {
	cpu *cpu.CPU
	mem *memory.MMU

	paused bool
	speed  float64
	opts   Options
}

// New creates an emulator with no cartridge inserted.
func New() *DMG {
	d := &DMG{
		mem:   memory.New(),
		speed: 1.0,
		opts:  DefaultOptions(),
	}
	d.cpu = cpu.New(d.mem)
	return d
}

// LoadCartridge parses and inserts a ROM image, resetting the machine.
func (d *DMG) LoadCartridge(rom []byte) (CartridgeInfo, error) {
	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return CartridgeInfo{}, err
	}

	d.mem = memory.NewWithCartridge(cart)
	d.cpu = cpu.New(d.mem)
	d.applyOptions()

	return CartridgeInfo{
		Title:      cart.Title(),
		HeaderHash: cart.Hash(),
		HasBattery: cart.HasBattery(),
	}, nil
}

// Reload re-initializes machine state, keeping the cartridge and its RAM
// contents. It also clears an InvalidInstruction fault.
func (d *DMG) Reload() {
	d.mem.Reset()
	d.cpu.Reset()
	d.applyOptions()
}

// Err returns the latched execution fault, if any. After a fault StepFor
// is a no-op until Reload.
func (d *DMG) Err() error {
	return d.cpu.Fault()
}

// SetPaused suspends or resumes execution.
func (d *DMG) SetPaused(paused bool) {
	d.paused = paused
}

// SetSpeed sets the simulation speed multiplier.
func (d *DMG) SetSpeed(speed float64) {
	if speed > 0 {
		d.speed = speed
	}
}

// UpdateOptions replaces the host options.
func (d *DMG) UpdateOptions(opts Options) {
	d.opts = opts
	d.applyOptions()
}

func (d *DMG) applyOptions() {
	d.mem.APU.SetMasterGain(d.opts.Volume)
}

// SetButton latches a joypad line; the change is visible to the next
// executed instruction.
func (d *DMG) SetButton(button Button, pressed bool) {
	d.mem.Joypad.Set(button, pressed)
}

// StepFor advances simulated time by the given wall-clock budget, scaled
// by the speed multiplier and clamped so the call returns promptly. It
// returns the number of T-cycles executed.
//
// Instructions and peripherals stay strictly interleaved: each
// instruction's full cycle cost reaches every peripheral before the next
// instruction dispatches.
func (d *DMG) StepFor(wallMs float64) int {
	if d.paused || d.mem.Cartridge() == nil || d.cpu.Fault() != nil {
		return 0
	}

	budget := timing.StepBudget(wallMs, d.speed)
	executed := 0
	for executed < budget {
		cycles := d.cpu.Exec()
		d.mem.Tick(cycles)
		d.mem.GPU.Tick(cycles)
		d.mem.APU.Tick(cycles)
		executed += cycles

		if d.cpu.Fault() != nil {
			slog.Warn("execution fault", "err", d.cpu.Fault())
			break
		}
	}
	return executed
}

// Framebuffer returns the last published frame packed two bits per pixel,
// row-major from the top-left, leftmost pixel in the high bits.
func (d *DMG) Framebuffer() []byte {
	return d.mem.GPU.FrameBuffer().Packed()
}

// FrameShades returns the frame as one shade byte per pixel. The slice
// aliases core memory and is only stable between StepFor calls.
func (d *DMG) FrameShades() []uint8 {
	return d.mem.GPU.FrameBuffer().Shades()
}

// Frames returns the number of completed frames since the last reset.
func (d *DMG) Frames() uint64 {
	return d.mem.GPU.Frames()
}

// AudioPull returns n interleaved stereo samples at the requested rate,
// padded with silence on underrun.
func (d *DMG) AudioPull(n, sampleRate int) []int16 {
	return d.mem.APU.Pull(n, sampleRate)
}

// SerialOutput returns every byte the guest has sent out the link port.
// Test ROMs report their results this way.
func (d *DMG) SerialOutput() []byte {
	return d.mem.Serial.Captured()
}

// SaveRAM returns a copy of the battery-backed cartridge RAM.
func (d *DMG) SaveRAM() ([]byte, error) {
	if d.mem.Cartridge() == nil {
		return nil, ErrNoCartridge
	}
	return d.mem.Cartridge().SaveRAM(), nil
}

// LoadRAM replaces the cartridge RAM; the image length must match the
// cartridge declaration.
func (d *DMG) LoadRAM(data []byte) error {
	if d.mem.Cartridge() == nil {
		return ErrNoCartridge
	}
	return d.mem.Cartridge().LoadRAM(data)
}

// Serialize captures the complete machine state, excluding ROM bytes.
// The stream is bound to the ROM by its header hash.
func (d *DMG) Serialize() ([]byte, error) {
	cart := d.mem.Cartridge()
	if cart == nil {
		return nil, ErrNoCartridge
	}

	s := snapshot.New()
	s.WriteHeader(cart.Hash())
	d.cpu.Save(s)
	d.mem.Save(s)
	d.mem.GPU.Save(s)
	d.mem.APU.Save(s)
	return s.Bytes(), nil
}

// Deserialize restores a snapshot taken from the same ROM.
func (d *DMG) Deserialize(data []byte) error {
	cart := d.mem.Cartridge()
	if cart == nil {
		return ErrNoCartridge
	}

	s := snapshot.FromBytes(data)
	version, hash, err := s.ReadHeader()
	if err != nil {
		return err
	}
	if version != snapshot.Version {
		return fmt.Errorf("%w: snapshot v%d, core v%d",
			ErrSnapshotVersionMismatch, version, snapshot.Version)
	}
	if hash != cart.Hash() {
		return fmt.Errorf("%w: snapshot 0x%08X, cartridge 0x%08X",
			ErrSnapshotRomMismatch, hash, cart.Hash())
	}

	d.cpu.Load(s)
	d.mem.Load(s)
	d.mem.GPU.Load(s)
	d.mem.APU.Load(s)
	return s.Err()
}
