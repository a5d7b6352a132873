package utils

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/andresmejia3/delogo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "25", want: 25},
		{in: "25/1", want: 25},
		{in: "30000/1001", want: 29.97002997},
		{in: "0/0", wantErr: true},
		{in: "24/0", wantErr: true},
		{in: "N/A", wantErr: true},
		{in: "", wantErr: true},
		{in: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrameRate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, math.Abs(got-tt.want) < 1e-6, "got %v, want %v", got, tt.want)
		})
	}
}

func TestDelogoFilterArg(t *testing.T) {
	tests := []struct {
		name string
		rect types.Rect
		show bool
		want string
	}{
		{
			name: "band folded in",
			rect: types.Rect{X: 100, Y: 50, W: 40, H: 20, Band: types.Band{Width: 2}},
			want: "delogo=x=98:y=48:w=44:h=24:show=0",
		},
		{
			name: "auto band draws the band",
			rect: types.Rect{X: 10, Y: 10, W: 10, H: 10, Band: types.Band{Auto: true}},
			want: "delogo=x=6:y=6:w=18:h=18:show=1",
		},
		{
			name: "clamped at the left edge",
			rect: types.Rect{X: 0, Y: 10, W: 40, H: 20, Band: types.Band{Width: 1}},
			show: true,
			want: "delogo=x=0:y=9:w=41:h=22:show=1",
		},
		{
			name: "clamped at the bottom right corner",
			rect: types.Rect{X: 300, Y: 225, W: 20, H: 15, Band: types.Band{Width: 2}},
			want: "delogo=x=298:y=223:w=22:h=17:show=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DelogoFilterArg(tt.rect, tt.show, 320, 240))
		})
	}
}

func TestNewFFmpegRawDecoder(t *testing.T) {
	cmd := NewFFmpegRawDecoder(context.Background(), "in.mp4", "yuv420p")
	assert.True(t, strings.HasSuffix(strings.Join(cmd.Args, " "), "-i in.mp4 -an -f rawvideo -pix_fmt yuv420p -"))
}

func TestNewFFmpegRawEncoder(t *testing.T) {
	cmd := NewFFmpegRawEncoder(context.Background(), "in.mp4", "out.mp4", "libx264", 25, 320, 240)
	args := strings.Join(cmd.Args, " ")

	assert.Contains(t, args, "-f rawvideo -pix_fmt yuv420p -s 320x240 -r 25 -i -")
	assert.Contains(t, args, "-i in.mp4 -map 0:v:0 -map 1:a?")
	assert.True(t, strings.HasSuffix(args, "-c:v libx264 -pix_fmt yuv420p out.mp4"))

	// Without a source there is nothing to copy audio from
	cmd = NewFFmpegRawEncoder(context.Background(), "", "out.mp4", "libx264", 25, 320, 240)
	assert.NotContains(t, strings.Join(cmd.Args, " "), "-map")
}

func TestSafeCommandCapturesStderr(t *testing.T) {
	cmd := NewSafeCommand(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	err := cmd.Run()
	require.Error(t, err)
	assert.Equal(t, "boom\n", cmd.Stderr.String())
}
