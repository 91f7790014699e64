// Package video implements the pixel processing unit: a scanline based
// state machine that renders background, window and sprite layers into
// a 160x144 framebuffer of 2-bit shades.
package video

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
)

// Shade is a monochrome pixel value after palette mapping, 0 (white)
// through 3 (black).
type Shade uint8

const (
	White Shade = iota
	LightGrey
	DarkGrey
	Black
)

// RGBA returns the shade as a 0xAARRGGBB value, for frontends that
// want ready-made colors.
func (s Shade) RGBA() uint32 {
	switch s {
	case White:
		return 0xFFFFFFFF
	case LightGrey:
		return 0xFF989898
	case DarkGrey:
		return 0xFF4C4C4C
	default:
		return 0xFF000000
	}
}

// FrameBuffer holds one rendered frame, row-major.
type FrameBuffer struct {
	buffer [FramebufferWidth * FramebufferHeight]Shade
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

func (fb *FrameBuffer) GetPixel(x, y int) Shade {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, shade Shade) {
	fb.buffer[y*FramebufferWidth+x] = shade
}

// ToSlice exposes the raw pixel data. The slice aliases the buffer, so
// it is only valid until the next rendered frame.
func (fb *FrameBuffer) ToSlice() []Shade {
	return fb.buffer[:]
}

// Clear sets every pixel to the given shade.
func (fb *FrameBuffer) Clear(shade Shade) {
	for i := range fb.buffer {
		fb.buffer[i] = shade
	}
}
