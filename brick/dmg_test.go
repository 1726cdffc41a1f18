package brick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrep/go-brick/brick/snapshot"
	"github.com/andrep/go-brick/brick/video"
)

// buildROM assembles a 32 KiB ROM with a valid header and the given code
// at the entry point 0x0100.
func buildROM(t *testing.T, cartType uint8, code ...byte) []byte {
	t.Helper()

	rom := make([]byte, 0x8000)
	copy(rom[0x100:], code)
	copy(rom[0x134:], "SEEDTEST")
	rom[0x147] = cartType
	rom[0x148] = 0x00 // 2 banks
	rom[0x149] = 0x00
	if cartType == 0x03 {
		rom[0x149] = 0x02 // one RAM bank
	}

	var sum uint8
	for a := 0x134; a < 0x14D; a++ {
		sum = sum - rom[a] - 1
	}
	rom[0x14D] = sum
	return rom
}

// haltLoop is a program that parks the CPU: disable interrupts, halt.
var haltLoop = []byte{0xF3, 0x76, 0x18, 0xFD} // DI ; HALT ; JR -3

func newTestDMG(t *testing.T, cartType uint8, code ...byte) *DMG {
	t.Helper()
	d := New()
	_, err := d.LoadCartridge(buildROM(t, cartType, code...))
	require.NoError(t, err)
	return d
}

func TestLoadCartridgeInfo(t *testing.T) {
	d := New()

	info, err := d.LoadCartridge(buildROM(t, 0x03, haltLoop...))
	require.NoError(t, err)
	assert.Equal(t, "SEEDTEST", info.Title)
	assert.True(t, info.HasBattery)
	assert.NotZero(t, info.HeaderHash)

	info2, err := d.LoadCartridge(buildROM(t, 0x00, haltLoop...))
	require.NoError(t, err)
	assert.False(t, info2.HasBattery)
	assert.NotEqual(t, info.HeaderHash, info2.HeaderHash, "hash covers the ROM bytes")
}

func TestLoadCartridgeRejectsGarbage(t *testing.T) {
	d := New()
	_, err := d.LoadCartridge(make([]byte, 64))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestBootRegisterState(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)

	s := snapshot.New()
	d.cpu.Save(s)
	r := snapshot.FromBytes(s.Bytes())

	assert.Equal(t, uint8(0x01), r.Read8()) // A
	assert.Equal(t, uint8(0xB0), r.Read8()) // F
	assert.Equal(t, uint8(0x00), r.Read8()) // B
	assert.Equal(t, uint8(0x13), r.Read8()) // C
	assert.Equal(t, uint8(0x00), r.Read8()) // D
	assert.Equal(t, uint8(0xD8), r.Read8()) // E
	assert.Equal(t, uint8(0x01), r.Read8()) // H
	assert.Equal(t, uint8(0x4D), r.Read8()) // L
	assert.Equal(t, uint16(0xFFFE), r.Read16())
	assert.Equal(t, uint16(0x0100), r.Read16())
}

func TestStepForRespectsBudget(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)

	executed := d.StepFor(1.0)
	// ~4194 cycles in a millisecond, instruction granularity
	assert.InDelta(t, 4194, executed, 24)

	d.SetSpeed(2.0)
	executed = d.StepFor(1.0)
	assert.InDelta(t, 8388, executed, 24)
}

func TestStepForWhilePaused(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)

	d.SetPaused(true)
	assert.Zero(t, d.StepFor(100))
	d.SetPaused(false)
	assert.NotZero(t, d.StepFor(1))
}

func TestStepForWithoutCartridge(t *testing.T) {
	d := New()
	assert.Zero(t, d.StepFor(100))
}

func TestFramePacing(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)

	// one second of simulated time in host-sized slices
	for range 100 {
		d.StepFor(10)
	}
	assert.InDelta(t, 59, d.Frames(), 2.0)
}

func TestFramebufferShape(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)
	d.StepFor(20)

	assert.Len(t, d.Framebuffer(), video.PackedSize)
	assert.Len(t, d.FrameShades(), video.FramebufferSize)
}

func TestSerialCapture(t *testing.T) {
	// LD A,'P' ; LDH (SB),A ; LD A,0x81 ; LDH (SC),A ; DI ; HALT
	program := []byte{0x3E, 'P', 0xE0, 0x01, 0x3E, 0x81, 0xE0, 0x02, 0xF3, 0x76, 0x18, 0xFD}
	d := newTestDMG(t, 0x00, program...)

	d.StepFor(5)
	assert.Equal(t, []byte{'P'}, d.SerialOutput())
}

func TestInvalidInstructionFreezesUntilReload(t *testing.T) {
	d := newTestDMG(t, 0x00, 0xDD)

	d.StepFor(1)
	require.ErrorIs(t, d.Err(), ErrInvalidInstruction)
	assert.Zero(t, d.StepFor(10), "faulted core ignores StepFor")

	d.Reload()
	assert.NoError(t, d.Err())
	assert.NotZero(t, d.StepFor(1))
}

func TestBatteryRAMRoundTrip(t *testing.T) {
	d := newTestDMG(t, 0x03, haltLoop...)

	image := make([]byte, 0x2000)
	for i := range image {
		image[i] = byte(i ^ 0x5A)
	}
	require.NoError(t, d.LoadRAM(image))

	saved, err := d.SaveRAM()
	require.NoError(t, err)
	assert.Equal(t, image, saved)

	assert.ErrorIs(t, d.LoadRAM(make([]byte, 16)), ErrRAMSizeMismatch)
}

func TestRAMOperationsNeedCartridge(t *testing.T) {
	d := New()
	_, err := d.SaveRAM()
	assert.ErrorIs(t, err, ErrNoCartridge)
	assert.ErrorIs(t, d.LoadRAM(nil), ErrNoCartridge)
	_, err = d.Serialize()
	assert.ErrorIs(t, err, ErrNoCartridge)
}

func TestReloadIsIdempotent(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)

	d.StepFor(50)
	d.Reload()
	first, err := d.Serialize()
	require.NoError(t, err)

	d.StepFor(50)
	d.Reload()
	second, err := d.Serialize()
	require.NoError(t, err)

	assert.Equal(t, first, second, "two reloads land in identical state")
}

func TestSnapshotRoundTrip(t *testing.T) {
	rom := buildROM(t, 0x00, haltLoop...)

	d := New()
	_, err := d.LoadCartridge(rom)
	require.NoError(t, err)
	d.StepFor(100)

	snap, err := d.Serialize()
	require.NoError(t, err)

	// restoring onto a fresh machine reproduces the state bit for bit
	fresh := New()
	_, err = fresh.LoadCartridge(rom)
	require.NoError(t, err)
	require.NoError(t, fresh.Deserialize(snap))

	snap2, err := fresh.Serialize()
	require.NoError(t, err)
	assert.Equal(t, snap, snap2)

	// and the two machines continue identically
	for range 10 {
		d.StepFor(5)
		fresh.StepFor(5)
		assert.Equal(t, d.Framebuffer(), fresh.Framebuffer())
	}

	snapA, _ := d.Serialize()
	snapB, _ := fresh.Serialize()
	assert.Equal(t, snapA, snapB)
}

func TestDeserializeRejectsOtherROM(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)
	snap, err := d.Serialize()
	require.NoError(t, err)

	other := New()
	otherROM := buildROM(t, 0x00, haltLoop...)
	otherROM[0x2000] = 0x42 // different content, same header
	_, err = other.LoadCartridge(otherROM)
	require.NoError(t, err)

	assert.ErrorIs(t, other.Deserialize(snap), ErrSnapshotRomMismatch)
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)
	snap, err := d.Serialize()
	require.NoError(t, err)

	snap[4] ^= 0xFF // version field
	assert.ErrorIs(t, d.Deserialize(snap), ErrSnapshotVersionMismatch)

	snap[4] ^= 0xFF
	snap[0] = 'X' // magic
	assert.ErrorIs(t, d.Deserialize(snap), snapshot.ErrBadMagic)
}

func TestButtonsReachTheGuest(t *testing.T) {
	// select the button group, then loop reading P1 into B
	// LD A,0x10 ; LDH (P1),A ; loop: LDH A,(P1) ; LD B,A ; JR loop
	program := []byte{0x3E, 0x10, 0xE0, 0x00, 0xF0, 0x00, 0x47, 0x18, 0xFB}
	d := newTestDMG(t, 0x00, program...)

	d.StepFor(1)
	d.SetButton(ButtonA, true)
	d.StepFor(1)
	assert.Equal(t, uint8(0), d.readCPUReg('b')&0x01, "A line pulled low")

	d.SetButton(ButtonA, false)
	d.StepFor(1)
	assert.Equal(t, uint8(1), d.readCPUReg('b')&0x01)
}

// readCPUReg peeks a CPU register through the snapshot stream, keeping
// the test on the public serialization surface.
func (d *DMG) readCPUReg(name byte) uint8 {
	s := snapshot.New()
	d.cpu.Save(s)
	r := snapshot.FromBytes(s.Bytes())
	order := []byte{'a', 'f', 'b', 'c', 'd', 'e', 'h', 'l'}
	var v uint8
	for _, reg := range order {
		v = r.Read8()
		if reg == name {
			return v
		}
	}
	return v
}

func TestUpdateOptionsVolume(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)

	opts := DefaultOptions()
	opts.Volume = 0.0
	d.UpdateOptions(opts)

	d.StepFor(50)
	for _, s := range d.AudioPull(256, 44100) {
		assert.Equal(t, int16(0), s, "muted output")
	}
}

func TestAudioPullLength(t *testing.T) {
	d := newTestDMG(t, 0x00, haltLoop...)
	d.StepFor(20)

	out := d.AudioPull(512, 48000)
	assert.Len(t, out, 1024)
}
