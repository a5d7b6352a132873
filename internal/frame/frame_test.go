package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	tests := []struct {
		w, h   int
		cw, ch int
		size   int
	}{
		{w: 4, h: 4, cw: 2, ch: 2, size: 24},
		{w: 640, h: 480, cw: 320, ch: 240, size: 460800},
		{w: 5, h: 3, cw: 3, ch: 2, size: 27},
	}
	for _, tt := range tests {
		cw, ch := ChromaSize(tt.w, tt.h)
		assert.Equal(t, tt.cw, cw)
		assert.Equal(t, tt.ch, ch)
		assert.Equal(t, tt.size, Size(tt.w, tt.h))
	}
}

func TestNewYUV420Layout(t *testing.T) {
	f := NewYUV420(6, 4)
	assert.True(t, f.Writable)
	assert.Equal(t, 6, f.Planes[0].Stride)
	assert.Equal(t, 3, f.Planes[1].Stride)
	assert.Len(t, f.Planes[0].Pix, 24)
	assert.Len(t, f.Planes[1].Pix, 6)
	assert.Len(t, f.Planes[2].Pix, 6)

	// Planes are views into one packed buffer
	f.Planes[2].Pix[0] = 9
	assert.Equal(t, byte(9), f.Bytes()[30])
}

func TestCopyPlanesHonorsStride(t *testing.T) {
	src := &Frame{Width: 4, Height: 2, PTS: time.Second, Index: 3}
	src.Planes[0] = Plane{Pix: []byte{1, 2, 3, 4, 0xEE, 0xEE, 5, 6, 7, 8, 0xEE, 0xEE}, Stride: 6}
	src.Planes[1] = Plane{Pix: []byte{9, 10, 0xEE}, Stride: 3}
	src.Planes[2] = Plane{Pix: []byte{11, 12, 0xEE}, Stride: 3}

	dst := NewYUV420(4, 2)
	dst.CopyAttributes(src)
	dst.CopyPlanes(src)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, dst.Bytes())
	assert.Equal(t, time.Second, dst.PTS)
	assert.Equal(t, 3, dst.Index)
}

func TestPoolReuse(t *testing.T) {
	p := NewPool(8, 8)
	f := p.Get()
	require.Len(t, f.Bytes(), Size(8, 8))
	assert.True(t, f.Writable)

	f.Release()
	assert.Nil(t, f.Bytes())
	// Releasing twice is harmless
	f.Release()

	g := p.Alloc(8, 8)
	assert.Len(t, g.Bytes(), Size(8, 8))

	// A different geometry is served outside the pool
	other := p.Alloc(4, 4)
	assert.Len(t, other.Bytes(), Size(4, 4))
	other.Release()
	assert.NotNil(t, other.Bytes())
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, CheckFormat(FormatYUV420P))
	assert.ErrorIs(t, CheckFormat("rgba"), ErrUnsupportedFormat)
	assert.ErrorIs(t, CheckFormat(""), ErrUnsupportedFormat)
}
