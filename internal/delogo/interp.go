package delogo

import (
	"github.com/andresmejia3/delogo/internal/frame"
	"github.com/andresmejia3/delogo/internal/types"
)

// Fill rebuilds the pixels of r in dst from the border of r in src.
// width and height are the plane's visible dimensions. The outermost ring of
// the clipped rectangle is left as is, since it supplies the border samples.
// dst and src may be the same plane.
func Fill(dst, src *frame.Plane, width, height int, r types.Region, show bool) {
	lx, ly, lw, lh, band := r.X, r.Y, r.W, r.H, r.Band

	xclipl := max(-lx, 0)
	xclipr := max(lx+lw-width, 0)
	yclipt := max(-ly, 0)
	yclipb := max(ly+lh-height, 0)

	x1 := lx + xclipl
	x2 := lx + lw - xclipr
	y1 := ly + yclipt
	y2 := ly + lh - yclipb

	// Nothing strictly inside the clipped rectangle.
	if x2-x1 < 3 || y2-y1 < 3 {
		return
	}

	ss, ds := src.Stride, dst.Stride
	sp, dp := src.Pix, dst.Pix

	// Border reference positions: the first and last in-bounds row and column.
	top := y1 * ss
	bot := (y2 - 1) * ss
	left := x1
	right := x2 - 1

	for y := y1 + 1; y < y2-1; y++ {
		row := y * ss
		lsum := int(sp[row-ss+left]) + int(sp[row+left]) + int(sp[row+ss+left])
		rsum := int(sp[row-ss+right]) + int(sp[row+right]) + int(sp[row+ss+right])
		dy := y - ly

		drow := y * ds
		for x := x1 + 1; x < x2-1; x++ {
			dx := x - lx
			tsum := int(sp[top+x-1]) + int(sp[top+x]) + int(sp[top+x+1])
			bsum := int(sp[bot+x-1]) + int(sp[bot+x]) + int(sp[bot+x+1])

			interp := (lsum*(lw-dx)/lw +
				rsum*dx/lw +
				tsum*(lh-dy)/lh +
				bsum*dy/lh) / 6

			if band == 0 || (y >= ly+band && y < ly+lh-band && x >= lx+band && x < lx+lw-band) {
				dp[drow+x] = uint8(interp)
				continue
			}

			dist := 0
			if x < lx+band {
				dist = max(dist, lx-x+band)
			} else if x >= lx+lw-band {
				dist = max(dist, x-(lx+lw-1-band))
			}
			if y < ly+band {
				dist = max(dist, ly-y+band)
			} else if y >= ly+lh-band {
				dist = max(dist, y-(ly+lh-1-band))
			}

			if show && dist == band-1 {
				dp[drow+x] = 0
				continue
			}
			dp[drow+x] = uint8((int(sp[row+x])*dist + interp*(band-dist)) / band)
		}
	}
}
