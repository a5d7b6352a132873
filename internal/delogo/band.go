package delogo

import (
	"github.com/andresmejia3/delogo/internal/types"
	"github.com/sirupsen/logrus"
)

// Adjust grows r by its band on every side and resolves the automatic band.
// The returned bool is the effective show flag.
func Adjust(r types.Rect, show bool) (types.Region, bool) {
	band := r.Band.Width
	if r.Band.Auto {
		band = types.DefaultAutoBand
		show = true
	} else if band < 0 {
		band = 0
	}

	reg := types.Region{
		X:    r.X - band,
		Y:    r.Y - band,
		W:    r.W + band*2,
		H:    r.H + band*2,
		Band: band,
	}

	logrus.WithFields(logrus.Fields{
		"function": "delogo.Adjust",
		"x":        reg.X,
		"y":        reg.Y,
		"w":        reg.W,
		"h":        reg.H,
		"band":     reg.Band,
	}).Debug("Logo region adjusted")

	return reg, show
}
