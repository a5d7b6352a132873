// Package pipeline moves raw yuv420p frames between ffmpeg pipes and a
// frame processor, one frame at a time.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/andresmejia3/delogo/internal/frame"
	"github.com/sirupsen/logrus"
)

// Processor transforms a frame. The returned frame may be the input.
type Processor interface {
	Process(in *frame.Frame) *frame.Frame
}

// Reader splits a raw yuv420p byte stream into frames.
type Reader struct {
	src    io.Reader
	pool   *frame.Pool
	width  int
	height int
	fps    float64
	next   int
}

// NewReader reads w x h frames from src. fps is used to stamp PTS; a value
// <= 0 leaves every PTS at zero.
func NewReader(src io.Reader, w, h int, fps float64, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:    bufio.NewReaderSize(src, frame.Size(w, h)),
		width:  w,
		height: h,
		fps:    fps,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pool == nil {
		r.pool = frame.NewPool(w, h)
	}
	return r
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithPool makes the reader take its frame buffers from p, which must hold
// frames of the reader's geometry.
func WithPool(p *frame.Pool) ReaderOption {
	return func(r *Reader) { r.pool = p }
}

// Pool exposes the reader's buffer pool so processors can allocate frames of
// the same geometry from it.
func (r *Reader) Pool() *frame.Pool { return r.pool }

// ReadFrame returns the next frame. It returns io.EOF at a clean frame
// boundary and io.ErrUnexpectedEOF if the stream ends mid-frame.
func (r *Reader) ReadFrame() (*frame.Frame, error) {
	f := r.pool.Get()
	if _, err := io.ReadFull(r.src, f.Bytes()); err != nil {
		f.Release()
		return nil, err
	}
	f.Index = r.next
	if r.fps > 0 {
		f.PTS = time.Duration(math.Round(float64(r.next) * float64(time.Second) / r.fps))
	}
	r.next++
	return f, nil
}

// Writer serializes frames as tightly packed yuv420p.
type Writer struct {
	dst *bufio.Writer
}

// NewWriter wraps dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: bufio.NewWriter(dst)}
}

// WriteFrame writes the visible samples of every plane, dropping any stride
// padding.
func (w *Writer) WriteFrame(f *frame.Frame) error {
	cw, ch := frame.ChromaSize(f.Width, f.Height)
	dims := [3][2]int{{f.Width, f.Height}, {cw, ch}, {cw, ch}}
	for i, d := range dims {
		p := f.Planes[i]
		for y := 0; y < d[1]; y++ {
			if _, err := w.dst.Write(p.Pix[y*p.Stride : y*p.Stride+d[0]]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush pushes buffered bytes to the underlying writer.
func (w *Writer) Flush() error {
	return w.dst.Flush()
}

// Run pulls every frame from r through p into w. onFrame, if set, is called
// after each written frame. It returns the number of frames written.
func Run(ctx context.Context, r *Reader, p Processor, w *Writer, onFrame func()) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		in, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read frame %d: %w", n, err)
		}

		out := p.Process(in)
		err = w.WriteFrame(out)
		out.Release()
		if err != nil {
			return n, fmt.Errorf("write frame %d: %w", n, err)
		}
		n++
		if onFrame != nil {
			onFrame()
		}
	}

	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("flush: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "pipeline.Run",
		"frames":   n,
	}).Debug("Pipeline drained")
	return n, nil
}
