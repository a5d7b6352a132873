// Package frame holds the planar YUV 4:2:0 frame model shared by the filter
// and the raw-video pipeline.
package frame

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnsupportedFormat is returned when a stream is not planar YUV 4:2:0.
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// Format identifies a pixel layout.
type Format string

// FormatYUV420P is 8-bit planar YUV with chroma subsampled 2x in both
// directions, ffmpeg's "yuv420p".
const FormatYUV420P Format = "yuv420p"

// CheckFormat returns ErrUnsupportedFormat for anything but FormatYUV420P.
func CheckFormat(f Format) error {
	if f != FormatYUV420P {
		return fmt.Errorf("%w: %q (only %s is supported)", ErrUnsupportedFormat, f, FormatYUV420P)
	}
	return nil
}

// Plane is one 8-bit sample plane. Stride may exceed the plane width.
type Plane struct {
	Pix    []byte
	Stride int
}

// Frame is a YUV 4:2:0 picture: Planes[0] is luma, Planes[1] and Planes[2]
// are the chroma planes at half width and half height (rounded up).
//
// Writable is the ownership flag: when true the holder is the only user of
// the pixel memory and may modify it in place.
type Frame struct {
	Width, Height int
	Planes        [3]Plane
	PTS           time.Duration
	Index         int
	Writable      bool

	pool *Pool
	buf  []byte
}

// ChromaSize returns the allocated chroma plane dimensions for a w x h frame.
func ChromaSize(w, h int) (int, int) {
	return (w + 1) / 2, (h + 1) / 2
}

// Size returns the number of bytes in a tightly packed w x h yuv420p frame.
func Size(w, h int) int {
	cw, ch := ChromaSize(w, h)
	return w*h + 2*cw*ch
}

// NewYUV420 allocates a writable, tightly packed frame.
func NewYUV420(w, h int) *Frame {
	f := &Frame{}
	f.layout(make([]byte, Size(w, h)), w, h)
	return f
}

func (f *Frame) layout(buf []byte, w, h int) {
	cw, ch := ChromaSize(w, h)
	ySize := w * h
	cSize := cw * ch
	f.Width, f.Height = w, h
	f.buf = buf
	f.Planes[0] = Plane{Pix: buf[:ySize], Stride: w}
	f.Planes[1] = Plane{Pix: buf[ySize : ySize+cSize], Stride: cw}
	f.Planes[2] = Plane{Pix: buf[ySize+cSize : ySize+2*cSize], Stride: cw}
	f.Writable = true
}

// Bytes returns the packed backing buffer, or nil if the frame was built
// from separate planes.
func (f *Frame) Bytes() []byte {
	return f.buf
}

// CopyAttributes copies everything except pixel data from src.
func (f *Frame) CopyAttributes(src *Frame) {
	f.PTS = src.PTS
	f.Index = src.Index
}

// CopyPlanes copies src's visible samples row by row. Both frames must have
// the same dimensions.
func (f *Frame) CopyPlanes(src *Frame) {
	cw, ch := ChromaSize(src.Width, src.Height)
	copyPlane(&f.Planes[0], &src.Planes[0], src.Width, src.Height)
	copyPlane(&f.Planes[1], &src.Planes[1], cw, ch)
	copyPlane(&f.Planes[2], &src.Planes[2], cw, ch)
}

func copyPlane(dst, src *Plane, w, h int) {
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
}

// Release hands a pooled frame's memory back to its pool. The frame must not
// be used afterwards. Frames not obtained from a Pool are left to the GC.
func (f *Frame) Release() {
	if f.pool == nil {
		return
	}
	p := f.pool
	f.pool = nil
	p.put(f.buf)
	f.buf = nil
	f.Planes = [3]Plane{}
}

// Pool recycles frame buffers of one geometry to reduce GC pressure.
type Pool struct {
	width, height int
	bufs          sync.Pool
}

// NewPool creates a pool of w x h frames.
func NewPool(w, h int) *Pool {
	size := Size(w, h)
	p := &Pool{width: w, height: h}
	p.bufs.New = func() interface{} { return make([]byte, size) }
	return p
}

// Get returns a writable frame. Pixel contents are undefined.
func (p *Pool) Get() *Frame {
	f := &Frame{pool: p}
	f.layout(p.bufs.Get().([]byte), p.width, p.height)
	return f
}

// Alloc satisfies the filter's allocator contract.
func (p *Pool) Alloc(w, h int) *Frame {
	if w != p.width || h != p.height {
		return NewYUV420(w, h)
	}
	return p.Get()
}

func (p *Pool) put(buf []byte) {
	if buf != nil {
		p.bufs.Put(buf)
	}
}
