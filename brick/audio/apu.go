// Package audio implements the four-channel APU.
package audio

import (
	"github.com/andrep/go-brick/brick/addr"
	"github.com/andrep/go-brick/brick/bit"
	"github.com/andrep/go-brick/brick/snapshot"
	"github.com/andrep/go-brick/brick/timing"
)

const (
	// cyclesPerStep is the frame sequencer period: 4194304 Hz / 512 Hz.
	cyclesPerStep = 8192
	// waveRAMSize is the wave pattern RAM: 16 bytes, 32 nibbles.
	waveRAMSize = 16

	defaultSampleRate = 44100
)

// dutyPatterns are the four square wave shapes, one bit per step.
var dutyPatterns = [4][8]int64{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

// noiseDividers maps NR43 divider codes to base periods.
var noiseDividers = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// channel holds the state of one APU voice. Not every field applies to
// every channel: sweep is CH1, wave fields are CH3, LFSR fields are CH4.
type channel struct {
	enabled    bool
	dacEnabled bool

	lengthEnable bool
	length       uint16 // counts down to zero at 256 Hz

	duty     uint8
	dutyStep uint8
	period   uint16 // 11-bit frequency period
	timer    int    // T-cycles until the next waveform step

	// envelope
	volume     uint8 // current output volume 0-15
	envVolume  uint8 // reload value from NRx2
	envUp      bool
	envPace    uint8
	envCounter uint8
	envDone    bool

	// frequency sweep (CH1)
	sweepPace    uint8
	sweepShift   uint8
	sweepDown    bool
	sweepEnabled bool
	sweepTimer   uint8
	shadowFreq   uint16
	sweepNegUsed bool

	// wave (CH3)
	waveIndex  uint8
	waveSample uint8

	// noise (CH4)
	lfsr       uint16
	lfsr7      bool // 7-bit width mode
	noiseShift uint8
	noiseDiv   uint8
}

// sweepTarget computes the next sweep frequency without mutating state.
func (ch *channel) sweepTarget() (freq uint16, overflow bool) {
	delta := ch.shadowFreq >> ch.sweepShift
	if ch.sweepDown {
		if delta > ch.shadowFreq {
			freq = 0
		} else {
			freq = ch.shadowFreq - delta
		}
	} else {
		freq = ch.shadowFreq + delta
	}
	return freq, freq > 2047
}

// APU is the audio processing unit: two square channels, a wave channel
// and a noise channel, mixed to stereo PCM at the host sample rate.
type APU struct {
	enabled bool
	ch      [4]channel

	// raw registers, kept for read-back masking
	nr10, nr11, nr12, nr13, nr14 uint8
	nr21, nr22, nr23, nr24       uint8
	nr30, nr31, nr32, nr33, nr34 uint8
	nr41, nr42, nr43, nr44       uint8
	nr50, nr51                   uint8
	waveRAM                      [waveRAMSize]uint8

	// frame sequencer
	seqStep   int
	seqCycles int

	// stereo mix accumulators, averaged per host sample
	mixLeft   int64
	mixRight  int64
	mixCycles int

	sampleRate      int
	cyclesPerSample float64
	sampleAcc       float64
	pcm             []int16
	pcmCursor       int

	// host volume scalar applied after mixing, 0..1
	masterGain float64
}

// New creates a powered-up APU.
func New() *APU {
	a := &APU{}
	a.Reset()
	return a
}

// Reset restores the post-boot register state.
func (a *APU) Reset() {
	*a = APU{
		masterGain: 1.0,
		sampleRate: a.sampleRate,
	}
	if a.sampleRate == 0 {
		a.sampleRate = defaultSampleRate
	}
	a.cyclesPerSample = float64(timing.CPUFrequency) / float64(a.sampleRate)

	// boot ROM leaves channel 1 playing the chime envelope
	a.WriteRegister(addr.NR52, 0xF1)
	a.WriteRegister(addr.NR10, 0x80)
	a.WriteRegister(addr.NR11, 0xBF)
	a.WriteRegister(addr.NR12, 0xF3)
	a.WriteRegister(addr.NR14, 0xBF)
	a.WriteRegister(addr.NR21, 0x3F)
	a.WriteRegister(addr.NR24, 0xBF)
	a.WriteRegister(addr.NR30, 0x7F)
	a.WriteRegister(addr.NR31, 0xFF)
	a.WriteRegister(addr.NR32, 0x9F)
	a.WriteRegister(addr.NR34, 0xBF)
	a.WriteRegister(addr.NR41, 0xFF)
	a.WriteRegister(addr.NR44, 0xBF)
	a.WriteRegister(addr.NR50, 0x77)
	a.WriteRegister(addr.NR51, 0xF3)
}

// SetMasterGain sets the host volume scalar applied after mixing.
func (a *APU) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	a.masterGain = gain
}

// SetSampleRate changes the host sample rate for subsequent output.
func (a *APU) SetSampleRate(rate int) {
	if rate <= 0 || rate == a.sampleRate {
		return
	}
	a.sampleRate = rate
	a.cyclesPerSample = float64(timing.CPUFrequency) / float64(rate)
	a.sampleAcc = 0
}

// Tick advances the APU by T-cycles: channel generators first, then the
// 512 Hz frame sequencer.
func (a *APU) Tick(cycles int) {
	if !a.enabled {
		// an idle APU still produces silence at the host rate
		a.mixCycles += cycles
		a.emitSamples(cycles)
		return
	}

	a.tickGenerators(cycles)

	a.seqCycles += cycles
	for a.seqCycles >= cyclesPerStep {
		a.seqCycles -= cyclesPerStep
		a.tickSequencer()
	}
}

func (a *APU) tickGenerators(cycles int) {
	var left, right int64
	for i := range 4 {
		ch := &a.ch[i]
		if !ch.enabled || !ch.dacEnabled {
			continue
		}

		var level int64
		switch i {
		case 0, 1:
			level = a.stepSquare(ch, cycles)
		case 2:
			level = a.stepWave(ch, cycles)
		case 3:
			level = a.stepNoise(ch, cycles)
		}
		if level == 0 {
			continue
		}

		if bit.IsSet(uint8(i+4), a.nr51) {
			left += level
		}
		if bit.IsSet(uint8(i), a.nr51) {
			right += level
		}
	}

	a.mixLeft += left * int64(cycles)
	a.mixRight += right * int64(cycles)
	a.mixCycles += cycles
	a.emitSamples(cycles)
}

// emitSamples moves accumulated mix averages into the PCM buffer whenever
// enough machine time has passed for a host sample.
func (a *APU) emitSamples(cycles int) {
	a.sampleAcc += float64(cycles)
	for a.sampleAcc >= a.cyclesPerSample {
		a.sampleAcc -= a.cyclesPerSample
		left, right := a.flushMix()
		a.pcm = append(a.pcm, left, right)
	}
}

const pcmScale = 32767.0 / (15.0 * 4.0)

func (a *APU) flushMix() (int16, int16) {
	if a.mixCycles == 0 {
		return 0, 0
	}
	leftAvg := float64(a.mixLeft) / float64(a.mixCycles)
	rightAvg := float64(a.mixRight) / float64(a.mixCycles)
	a.mixLeft, a.mixRight, a.mixCycles = 0, 0, 0

	volLeft := float64(bit.Extract(a.nr50, 6, 4)+1) / 8.0
	volRight := float64(bit.Extract(a.nr50, 2, 0)+1) / 8.0

	return a.scale(leftAvg * volLeft), a.scale(rightAvg * volRight)
}

func (a *APU) scale(avg float64) int16 {
	v := avg * pcmScale * a.masterGain
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// Pull returns n interleaved stereo samples at the requested rate,
// padding with silence if the core has not produced enough yet.
func (a *APU) Pull(n, sampleRate int) []int16 {
	a.SetSampleRate(sampleRate)
	if n <= 0 {
		return nil
	}

	out := make([]int16, n*2)
	available := len(a.pcm) - a.pcmCursor
	toCopy := min(available, len(out))
	copy(out, a.pcm[a.pcmCursor:a.pcmCursor+toCopy])
	a.pcmCursor += toCopy

	if a.pcmCursor >= len(a.pcm) {
		a.pcm = a.pcm[:0]
		a.pcmCursor = 0
	}
	return out
}

func (a *APU) squarePeriod(ch *channel) int {
	return (2048 - int(ch.period&0x7FF)) * 4
}

func (a *APU) wavePeriod(ch *channel) int {
	return (2048 - int(ch.period&0x7FF)) * 2
}

func (a *APU) noisePeriod(ch *channel) int {
	return noiseDividers[ch.noiseDiv&0x07] << ch.noiseShift
}

func (a *APU) stepSquare(ch *channel, cycles int) int64 {
	period := a.squarePeriod(ch)
	if period <= 0 {
		return 0
	}
	if ch.timer <= 0 {
		ch.timer = period
	}
	ch.timer -= cycles
	for ch.timer <= 0 {
		ch.timer += period
		ch.dutyStep = (ch.dutyStep + 1) & 0x07
	}

	if ch.volume == 0 {
		return 0
	}
	if dutyPatterns[ch.duty&0x03][ch.dutyStep] == 0 {
		// mirror the level for a DC-free signal
		return -int64(ch.volume)
	}
	return int64(ch.volume)
}

func (a *APU) stepWave(ch *channel, cycles int) int64 {
	period := a.wavePeriod(ch)
	if period <= 0 {
		return 0
	}
	if ch.timer <= 0 {
		ch.timer = period
	}
	ch.timer -= cycles
	for ch.timer <= 0 {
		ch.timer += period
		ch.waveIndex = (ch.waveIndex + 1) & 0x1F
		ch.waveSample = a.waveRAM[ch.waveIndex>>1]
	}

	nibble := ch.waveSample >> 4
	if ch.waveIndex&1 == 1 {
		nibble = ch.waveSample & 0x0F
	}
	sample := int64(nibble) - 8

	switch ch.volume & 0x03 { // NR32 output level code
	case 0:
		return 0
	case 1:
		return sample
	case 2:
		return sample / 2
	default:
		return sample / 4
	}
}

func (a *APU) stepNoise(ch *channel, cycles int) int64 {
	period := a.noisePeriod(ch)
	if period <= 0 {
		return 0
	}
	if ch.lfsr == 0 {
		ch.lfsr = 0x7FFF
	}
	if ch.timer <= 0 {
		ch.timer = period
	}
	ch.timer -= cycles
	for ch.timer <= 0 {
		ch.timer += period
		fb := (ch.lfsr & 1) ^ ((ch.lfsr >> 1) & 1)
		ch.lfsr = (ch.lfsr >> 1) | (fb << 14)
		if ch.lfsr7 {
			ch.lfsr = (ch.lfsr &^ (1 << 6)) | (fb << 6)
		}
	}

	if ch.volume == 0 {
		return 0
	}
	// output is the inverted low bit
	if ch.lfsr&1 == 1 {
		return -int64(ch.volume)
	}
	return int64(ch.volume)
}

// tickSequencer advances one 512 Hz step:
//
//	step | length (256Hz) | sweep (128Hz) | envelope (64Hz)
//	-----------------------------------------------------
//	0    | yes            | -             | -
//	2    | yes            | yes           | -
//	4    | yes            | -             | -
//	6    | yes            | yes           | -
//	7    | -              | -             | yes
func (a *APU) tickSequencer() {
	switch a.seqStep {
	case 0, 4:
		a.tickLength()
	case 2, 6:
		a.tickLength()
		a.tickSweep()
	case 7:
		a.tickEnvelopes()
	}
	a.seqStep = (a.seqStep + 1) & 0x07
}

func (a *APU) tickLength() {
	for i := range 4 {
		ch := &a.ch[i]
		if !ch.lengthEnable || ch.length == 0 {
			continue
		}
		ch.length--
		if ch.length == 0 {
			ch.enabled = false
		}
	}
}

func (a *APU) tickSweep() {
	ch := &a.ch[0]
	if !ch.sweepEnabled {
		return
	}

	ch.sweepTimer--
	if ch.sweepTimer > 0 {
		return
	}
	ch.sweepTimer = ch.sweepPace
	if ch.sweepTimer == 0 {
		ch.sweepTimer = 8
	}
	if ch.sweepPace == 0 {
		return
	}

	// overflow check happens even when shift == 0
	newFreq, overflow := ch.sweepTarget()
	if overflow {
		ch.enabled = false
		return
	}
	if ch.sweepDown {
		ch.sweepNegUsed = true
	}
	if ch.sweepShift == 0 {
		return
	}

	ch.shadowFreq = newFreq
	ch.period = newFreq
	a.nr13 = uint8(newFreq)
	a.nr14 = (a.nr14 & 0xF8) | uint8(newFreq>>8)&0x07

	// the written frequency is immediately re-checked for overflow
	if _, overflow := ch.sweepTarget(); overflow {
		ch.enabled = false
	}
}

func (a *APU) tickEnvelopes() {
	for _, i := range []int{0, 1, 3} {
		ch := &a.ch[i]
		if !ch.dacEnabled || ch.envDone {
			continue
		}

		pace := ch.envPace
		if pace == 0 {
			pace = 8
		}
		if ch.envCounter == 0 {
			ch.envCounter = pace
		}
		ch.envCounter--
		if ch.envCounter > 0 {
			continue
		}
		ch.envCounter = pace

		if ch.envUp {
			if ch.volume < 15 {
				ch.volume++
			} else {
				ch.envDone = true
			}
		} else {
			if ch.volume > 0 {
				ch.volume--
			} else {
				ch.envDone = true
			}
		}
	}
}

// waveRAMLocked reports whether the CPU sees the playback buffer instead
// of wave RAM.
func (a *APU) waveRAMLocked() bool {
	return a.enabled && a.ch[2].enabled && a.ch[2].dacEnabled
}

// ReadRegister returns the register with write-only and unused bits
// forced to 1.
func (a *APU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.NR10:
		return a.nr10 | 0x80
	case addr.NR11:
		return a.nr11 | 0x3F
	case addr.NR12:
		return a.nr12
	case addr.NR13:
		return 0xFF
	case addr.NR14:
		return a.nr14 | 0xBF
	case addr.NR21:
		return a.nr21 | 0x3F
	case addr.NR22:
		return a.nr22
	case addr.NR23:
		return 0xFF
	case addr.NR24:
		return a.nr24 | 0xBF
	case addr.NR30:
		return a.nr30 | 0x7F
	case addr.NR31:
		return 0xFF
	case addr.NR32:
		return a.nr32 | 0x9F
	case addr.NR33:
		return 0xFF
	case addr.NR34:
		return a.nr34 | 0xBF
	case addr.NR41:
		return 0xFF
	case addr.NR42:
		return a.nr42
	case addr.NR43:
		return a.nr43
	case addr.NR44:
		return a.nr44 | 0xBF
	case addr.NR50:
		return a.nr50
	case addr.NR51:
		return a.nr51
	case addr.NR52:
		status := uint8(0x70)
		if a.enabled {
			status |= 0x80
		}
		for i := range 4 {
			if a.ch[i].enabled {
				status |= 1 << i
			}
		}
		return status
	}

	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		if a.waveRAMLocked() {
			return a.ch[2].waveSample
		}
		return a.waveRAM[address-addr.WaveRAMStart]
	}
	return 0xFF
}

// WriteRegister stores a register write and applies its side effects.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		if a.waveRAMLocked() {
			// writes during playback land on the active byte
			a.waveRAM[a.ch[2].waveIndex>>1] = value
			a.ch[2].waveSample = value
		} else {
			a.waveRAM[address-addr.WaveRAMStart] = value
		}
		return
	}

	// while powered off only NR52 is writable
	if !a.enabled && address != addr.NR52 {
		return
	}

	switch address {
	case addr.NR10:
		a.nr10 = value
		ch := &a.ch[0]
		wasDown := ch.sweepDown
		ch.sweepPace = bit.Extract(value, 6, 4)
		ch.sweepDown = bit.IsSet(3, value)
		ch.sweepShift = bit.Extract(value, 2, 0)
		// leaving subtract mode after a subtract calculation kills CH1
		if wasDown && !ch.sweepDown && ch.sweepNegUsed {
			ch.enabled = false
		}
	case addr.NR11:
		a.nr11 = value
		a.ch[0].duty = bit.Extract(value, 7, 6)
		a.ch[0].length = 64 - uint16(value&0x3F)
	case addr.NR12:
		a.nr12 = value
		a.writeEnvelope(&a.ch[0], value)
	case addr.NR13:
		a.nr13 = value
		a.ch[0].period = bit.Combine(a.nr14&0x07, value)
	case addr.NR14:
		a.nr14 = value & 0x7F
		a.ch[0].period = bit.Combine(value&0x07, a.nr13)
		a.writeControl(0, value, 64)
		if bit.IsSet(7, value) {
			a.triggerSweep()
		}
	case addr.NR21:
		a.nr21 = value
		a.ch[1].duty = bit.Extract(value, 7, 6)
		a.ch[1].length = 64 - uint16(value&0x3F)
	case addr.NR22:
		a.nr22 = value
		a.writeEnvelope(&a.ch[1], value)
	case addr.NR23:
		a.nr23 = value
		a.ch[1].period = bit.Combine(a.nr24&0x07, value)
	case addr.NR24:
		a.nr24 = value & 0x7F
		a.ch[1].period = bit.Combine(value&0x07, a.nr23)
		a.writeControl(1, value, 64)
	case addr.NR30:
		a.nr30 = value
		a.ch[2].dacEnabled = bit.IsSet(7, value)
		if !a.ch[2].dacEnabled {
			a.ch[2].enabled = false
		}
	case addr.NR31:
		a.nr31 = value
		a.ch[2].length = 256 - uint16(value)
	case addr.NR32:
		a.nr32 = value
		a.ch[2].volume = bit.Extract(value, 6, 5)
	case addr.NR33:
		a.nr33 = value
		a.ch[2].period = bit.Combine(a.nr34&0x07, value)
	case addr.NR34:
		a.nr34 = value & 0x7F
		a.ch[2].period = bit.Combine(value&0x07, a.nr33)
		a.writeControl(2, value, 256)
	case addr.NR41:
		a.nr41 = value
		a.ch[3].length = 64 - uint16(value&0x3F)
	case addr.NR42:
		a.nr42 = value
		a.writeEnvelope(&a.ch[3], value)
	case addr.NR43:
		a.nr43 = value
		ch := &a.ch[3]
		ch.noiseShift = bit.Extract(value, 7, 4)
		ch.lfsr7 = bit.IsSet(3, value)
		ch.noiseDiv = bit.Extract(value, 2, 0)
	case addr.NR44:
		a.nr44 = value & 0x7F
		a.writeControl(3, value, 64)
	case addr.NR50:
		a.nr50 = value
	case addr.NR51:
		a.nr51 = value
	case addr.NR52:
		wasEnabled := a.enabled
		a.enabled = bit.IsSet(7, value)
		if wasEnabled && !a.enabled {
			a.powerOff()
		} else if !wasEnabled && a.enabled {
			a.seqStep = 0
			a.seqCycles = 0
		}
	}
}

// writeEnvelope applies an NRx2-style write: envelope parameters plus DAC
// enable (any of the top five bits set).
func (a *APU) writeEnvelope(ch *channel, value uint8) {
	ch.envVolume = bit.Extract(value, 7, 4)
	ch.envUp = bit.IsSet(3, value)
	ch.envPace = bit.Extract(value, 2, 0)
	ch.envDone = false
	ch.dacEnabled = value&0xF8 != 0
	if !ch.dacEnabled {
		ch.enabled = false
	}
}

// writeControl applies an NRx4-style write: length enable and trigger.
func (a *APU) writeControl(idx int, value uint8, maxLength uint16) {
	ch := &a.ch[idx]
	wasEnabled := ch.lengthEnable
	ch.lengthEnable = bit.IsSet(6, value)

	// enabling length in the first half of a sequencer period clocks it
	// once immediately
	extraClock := a.seqStep%2 == 1
	if !wasEnabled && ch.lengthEnable && extraClock && ch.length > 0 {
		ch.length--
		if ch.length == 0 && !bit.IsSet(7, value) {
			ch.enabled = false
		}
	}

	if bit.IsSet(7, value) {
		a.trigger(idx, maxLength, extraClock)
	}
}

// trigger restarts a channel: length reload when expired, fresh envelope,
// fresh waveform position.
func (a *APU) trigger(idx int, maxLength uint16, extraClock bool) {
	ch := &a.ch[idx]

	if ch.length == 0 {
		ch.length = maxLength
		if ch.lengthEnable && extraClock {
			ch.length--
		}
	}

	ch.volume = ch.envVolume
	ch.envDone = false
	ch.envCounter = ch.envPace
	if ch.envCounter == 0 {
		ch.envCounter = 8
	}

	switch idx {
	case 0, 1:
		ch.dutyStep = 0
		ch.timer = a.squarePeriod(ch)
	case 2:
		ch.waveIndex = 0
		ch.waveSample = a.waveRAM[0]
		ch.timer = a.wavePeriod(ch)
	case 3:
		ch.lfsr = 0x7FFF
		ch.timer = a.noisePeriod(ch)
	}

	if ch.dacEnabled {
		ch.enabled = true
	}
}

// triggerSweep arms the CH1 sweep unit after a trigger write.
func (a *APU) triggerSweep() {
	ch := &a.ch[0]
	ch.shadowFreq = ch.period
	ch.sweepEnabled = ch.sweepPace > 0 || ch.sweepShift > 0
	ch.sweepTimer = ch.sweepPace
	if ch.sweepTimer == 0 {
		ch.sweepTimer = 8
	}
	ch.sweepNegUsed = false

	if ch.sweepShift != 0 {
		if ch.sweepDown {
			ch.sweepNegUsed = true
		}
		if _, overflow := ch.sweepTarget(); overflow {
			ch.enabled = false
		}
	}
}

// powerOff clears every register and channel. On DMG the length counters
// are cleared along with everything else.
func (a *APU) powerOff() {
	a.nr10, a.nr11, a.nr12, a.nr13, a.nr14 = 0, 0, 0, 0, 0
	a.nr21, a.nr22, a.nr23, a.nr24 = 0, 0, 0, 0
	a.nr30, a.nr31, a.nr32, a.nr33, a.nr34 = 0, 0, 0, 0, 0
	a.nr41, a.nr42, a.nr43, a.nr44 = 0, 0, 0, 0
	a.nr50, a.nr51 = 0, 0
	for i := range a.ch {
		a.ch[i] = channel{}
	}
	a.seqStep = 0
	a.seqCycles = 0
}

func (ch *channel) save(s *snapshot.State) {
	s.WriteBool(ch.enabled)
	s.WriteBool(ch.dacEnabled)
	s.WriteBool(ch.lengthEnable)
	s.Write16(ch.length)
	s.Write8(ch.duty)
	s.Write8(ch.dutyStep)
	s.Write16(ch.period)
	s.WriteInt(ch.timer)
	s.Write8(ch.volume)
	s.Write8(ch.envVolume)
	s.WriteBool(ch.envUp)
	s.Write8(ch.envPace)
	s.Write8(ch.envCounter)
	s.WriteBool(ch.envDone)
	s.Write8(ch.sweepPace)
	s.Write8(ch.sweepShift)
	s.WriteBool(ch.sweepDown)
	s.WriteBool(ch.sweepEnabled)
	s.Write8(ch.sweepTimer)
	s.Write16(ch.shadowFreq)
	s.WriteBool(ch.sweepNegUsed)
	s.Write8(ch.waveIndex)
	s.Write8(ch.waveSample)
	s.Write16(ch.lfsr)
	s.WriteBool(ch.lfsr7)
	s.Write8(ch.noiseShift)
	s.Write8(ch.noiseDiv)
}

func (ch *channel) load(s *snapshot.State) {
	ch.enabled = s.ReadBool()
	ch.dacEnabled = s.ReadBool()
	ch.lengthEnable = s.ReadBool()
	ch.length = s.Read16()
	ch.duty = s.Read8()
	ch.dutyStep = s.Read8()
	ch.period = s.Read16()
	ch.timer = s.ReadInt()
	ch.volume = s.Read8()
	ch.envVolume = s.Read8()
	ch.envUp = s.ReadBool()
	ch.envPace = s.Read8()
	ch.envCounter = s.Read8()
	ch.envDone = s.ReadBool()
	ch.sweepPace = s.Read8()
	ch.sweepShift = s.Read8()
	ch.sweepDown = s.ReadBool()
	ch.sweepEnabled = s.ReadBool()
	ch.sweepTimer = s.Read8()
	ch.shadowFreq = s.Read16()
	ch.sweepNegUsed = s.ReadBool()
	ch.waveIndex = s.Read8()
	ch.waveSample = s.Read8()
	ch.lfsr = s.Read16()
	ch.lfsr7 = s.ReadBool()
	ch.noiseShift = s.Read8()
	ch.noiseDiv = s.Read8()
}

// Save appends the APU state. The PCM buffer is host-side and excluded.
func (a *APU) Save(s *snapshot.State) {
	s.WriteBool(a.enabled)
	for i := range a.ch {
		a.ch[i].save(s)
	}
	regs := []uint8{
		a.nr10, a.nr11, a.nr12, a.nr13, a.nr14,
		a.nr21, a.nr22, a.nr23, a.nr24,
		a.nr30, a.nr31, a.nr32, a.nr33, a.nr34,
		a.nr41, a.nr42, a.nr43, a.nr44,
		a.nr50, a.nr51,
	}
	s.WriteData(regs)
	s.WriteData(a.waveRAM[:])
	s.WriteInt(a.seqStep)
	s.WriteInt(a.seqCycles)
}

// Load restores the APU state.
func (a *APU) Load(s *snapshot.State) {
	a.enabled = s.ReadBool()
	for i := range a.ch {
		a.ch[i].load(s)
	}
	regs := make([]uint8, 20)
	s.ReadData(regs)
	a.nr10, a.nr11, a.nr12, a.nr13, a.nr14 = regs[0], regs[1], regs[2], regs[3], regs[4]
	a.nr21, a.nr22, a.nr23, a.nr24 = regs[5], regs[6], regs[7], regs[8]
	a.nr30, a.nr31, a.nr32, a.nr33, a.nr34 = regs[9], regs[10], regs[11], regs[12], regs[13]
	a.nr41, a.nr42, a.nr43, a.nr44 = regs[14], regs[15], regs[16], regs[17]
	a.nr50, a.nr51 = regs[18], regs[19]
	s.ReadData(a.waveRAM[:])
	a.seqStep = s.ReadInt()
	a.seqCycles = s.ReadInt()
	a.pcm = a.pcm[:0]
	a.pcmCursor = 0
	a.mixLeft, a.mixRight, a.mixCycles = 0, 0, 0
}
