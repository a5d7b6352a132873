package types

// DefaultAutoBand is the band width used when a rectangle asks for the
// automatic (visible) band.
const DefaultAutoBand = 4

// Band is the width of the feathering band inside the logo border.
// Auto selects DefaultAutoBand and forces the band to be painted.
type Band struct {
	Width int
	Auto  bool
}

// BandFromInt converts the integer form used by the CLI and schedule files,
// where a negative value means "automatic".
func BandFromInt(n int) Band {
	if n < 0 {
		return Band{Auto: true}
	}
	return Band{Width: n}
}

// Int is the inverse of BandFromInt.
func (b Band) Int() int {
	if b.Auto {
		return -1
	}
	return b.Width
}

// Rect is a requested logo rectangle, before band adjustment.
type Rect struct {
	X, Y, W, H int
	Band       Band
}

// IsZero reports whether r is the "logo off" rectangle.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// TimedRect is one schedule entry. TS is in milliseconds.
type TimedRect struct {
	TS   int64
	Rect Rect
}

// Region is the effective rectangle handed to the interpolator: it already
// encloses the visible logo plus its band on every side.
type Region struct {
	X, Y, W, H int
	Band       int
}

// Half returns the region scaled to a 2x subsampled chroma plane.
func (r Region) Half() Region {
	return Region{X: r.X / 2, Y: r.Y / 2, W: r.W / 2, H: r.H / 2, Band: r.Band / 2}
}
