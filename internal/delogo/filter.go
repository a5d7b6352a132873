// Package delogo implements a simple TV station logo remover for planar
// YUV 4:2:0 frames.
//
// The logo rectangle is rebuilt from the pixels around it: every interior
// pixel becomes a distance-weighted mix of the rectangle's four border lines.
// A band inside the border feathers the rebuilt area into the original
// picture. The rectangle can be fixed or follow a timed schedule.
package delogo

import (
	"github.com/andresmejia3/delogo/internal/frame"
	"github.com/andresmejia3/delogo/internal/schedule"
	"github.com/andresmejia3/delogo/internal/types"
	"github.com/sirupsen/logrus"
)

// Allocator provides output frames when the input cannot be modified.
type Allocator interface {
	Alloc(w, h int) *frame.Frame
}

// FormatQuerier negotiates pixel formats with the next stage of a chain.
type FormatQuerier interface {
	QueryFormat(f frame.Format) bool
}

type allocFunc func(w, h int) *frame.Frame

func (f allocFunc) Alloc(w, h int) *frame.Frame { return f(w, h) }

// Config is the filter configuration. Schedule, when set, overrides Rect
// from the first processed frame on.
type Config struct {
	Rect     types.Rect
	Show     bool
	Schedule *schedule.Schedule
}

// Option customizes a Filter.
type Option func(*Filter)

// WithAllocator sets where copy-on-write output frames come from.
func WithAllocator(a Allocator) Option {
	return func(f *Filter) { f.alloc = a }
}

// WithNext sets the downstream stage consulted by QueryFormat.
func WithNext(q FormatQuerier) Option {
	return func(f *Filter) { f.next = q }
}

// Filter holds the per-instance state of one logo remover.
type Filter struct {
	show     bool
	sched    *schedule.Schedule
	cursor   int
	region   types.Region
	drawBand bool

	alloc Allocator
	next  FormatQuerier
}

// New creates a filter. With a schedule, the cursor starts before the first
// entry and the zero rectangle is active until a timestamp reaches it.
func New(cfg Config, opts ...Option) *Filter {
	f := &Filter{
		show:   cfg.Show,
		sched:  cfg.Schedule,
		cursor: -1,
		alloc:  allocFunc(frame.NewYUV420),
	}
	for _, o := range opts {
		o(f)
	}

	rect := cfg.Rect
	if f.sched != nil {
		rect = types.Rect{}
		logrus.WithFields(logrus.Fields{
			"function": "delogo.New",
			"schedule": f.sched.Name(),
			"entries":  f.sched.Len(),
		}).Debug("Using timed rectangles")
	}
	f.region, f.drawBand = Adjust(rect, f.show)
	return f
}

// QueryFormat accepts only planar YUV 4:2:0 and then defers to the next
// stage, if any.
func (f *Filter) QueryFormat(pf frame.Format) bool {
	if frame.CheckFormat(pf) != nil {
		return false
	}
	if f.next == nil {
		return true
	}
	return f.next.QueryFormat(pf)
}

// Process removes the logo from one frame. If in is not writable a new frame
// is allocated, in is copied into it, and in is released.
func (f *Filter) Process(in *frame.Frame) *frame.Frame {
	out := in
	if !in.Writable {
		out = f.alloc.Alloc(in.Width, in.Height)
		out.CopyAttributes(in)
		out.CopyPlanes(in)
	}

	if f.sched != nil {
		f.update(out.PTS.Milliseconds())
	}

	w, h := in.Width, in.Height
	Fill(&out.Planes[0], &in.Planes[0], w, h, f.region, f.drawBand)
	half := f.region.Half()
	Fill(&out.Planes[1], &in.Planes[1], w/2, h/2, half, f.drawBand)
	Fill(&out.Planes[2], &in.Planes[2], w/2, h/2, half, f.drawBand)

	if out != in {
		in.Release()
	}
	return out
}

func (f *Filter) update(ts int64) {
	c := f.sched.Advance(f.cursor, ts)
	if c == f.cursor {
		return
	}
	f.cursor = c
	f.region, f.drawBand = Adjust(f.sched.At(c), f.show)
}

// Region returns the effective luma region currently applied.
func (f *Filter) Region() types.Region { return f.region }

// Show reports whether the band's inner ring is being painted black.
func (f *Filter) Show() bool { return f.drawBand }

// Cursor returns the active schedule index, -1 before the first entry.
func (f *Filter) Cursor() int { return f.cursor }
