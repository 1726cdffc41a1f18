package video

import "github.com/andrep/go-brick/brick/snapshot"

const (
	// FramebufferWidth is the visible display width in pixels.
	FramebufferWidth = 160
	// FramebufferHeight is the visible display height in pixels.
	FramebufferHeight = 144
	// FramebufferSize is the pixel count of one frame.
	FramebufferSize = FramebufferWidth * FramebufferHeight
	// PackedSize is the byte length of a 2bpp-packed frame.
	PackedSize = FramebufferSize / 4
)

// FrameBuffer holds one frame as two-bit shades, one byte per pixel,
// row-major from the top-left. Shade 0 is the lightest. Mapping shades to
// RGB is the host's job.
type FrameBuffer struct {
	shades [FramebufferSize]uint8
}

// NewFrameBuffer creates a cleared framebuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// At returns the shade at the given coordinates.
func (fb *FrameBuffer) At(x, y int) uint8 {
	return fb.shades[y*FramebufferWidth+x]
}

// Set stores the shade at the given coordinates.
func (fb *FrameBuffer) Set(x, y int, shade uint8) {
	fb.shades[y*FramebufferWidth+x] = shade & 0x03
}

// Shades returns the backing slice, one shade byte per pixel.
func (fb *FrameBuffer) Shades() []uint8 {
	return fb.shades[:]
}

// Clear resets every pixel to shade 0.
func (fb *FrameBuffer) Clear() {
	for i := range fb.shades {
		fb.shades[i] = 0
	}
}

// Packed returns the frame packed four pixels per byte, leftmost pixel in
// the top bits.
func (fb *FrameBuffer) Packed() []byte {
	out := make([]byte, PackedSize)
	for i := 0; i < FramebufferSize; i += 4 {
		out[i/4] = fb.shades[i]<<6 | fb.shades[i+1]<<4 | fb.shades[i+2]<<2 | fb.shades[i+3]
	}
	return out
}

// Save appends the frame contents.
func (fb *FrameBuffer) Save(s *snapshot.State) {
	s.WriteData(fb.shades[:])
}

// Load restores the frame contents.
func (fb *FrameBuffer) Load(s *snapshot.State) {
	s.ReadData(fb.shades[:])
}
