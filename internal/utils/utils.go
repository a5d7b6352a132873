package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresmejia3/delogo/internal/types"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (ffmpeg logs)
// so a failed run can be reported with its own diagnostics.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe.
// It prepares the command for execution but does not start it.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ShowError prints a formatted error box and dumps captured subprocess logs
// if a SafeCommand is provided. The caller decides whether to exit.
func ShowError(context string, err error, s *SafeCommand) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 DELOGO ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}

	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(os.Stderr, "\n%s LOGS:\n%s\n", strings.ToUpper(filepath.Base(s.Path)), s.Stderr.String())
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// --- 2. Video Probing ---

type ffprobeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		PixFmt        string `json:"pix_fmt"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		RFrameRate    string `json:"r_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

func probe(ctx context.Context, path string, args ...string) (*ffprobeOutput, error) {
	base := []string{"-v", "error", "-select_streams", "v:0"}
	base = append(base, args...)
	base = append(base, "-of", "json", path)

	out, err := exec.CommandContext(ctx, "ffprobe", base...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}
	if len(res.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", path)
	}
	return &res, nil
}

// ParseFrameRate parses ffprobe rates such as "30000/1001" or "25".
func ParseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if !found {
		if n <= 0 {
			return 0, fmt.Errorf("invalid frame rate %q", s)
		}
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if d == 0 || n <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n / d, nil
}

// GetVideoFPS returns the average frame rate of the first video stream,
// falling back to the container's real base rate.
func GetVideoFPS(ctx context.Context, path string) (float64, error) {
	res, err := probe(ctx, path, "-show_entries", "stream=avg_frame_rate,r_frame_rate")
	if err != nil {
		return 0, err
	}
	st := res.Streams[0]
	if fps, err := ParseFrameRate(st.AvgFrameRate); err == nil {
		return fps, nil
	}
	return ParseFrameRate(st.RFrameRate)
}

// GetVideoDimensions returns the width and height of the first video stream.
func GetVideoDimensions(ctx context.Context, path string) (int, int, error) {
	res, err := probe(ctx, path, "-show_entries", "stream=width,height")
	if err != nil {
		return 0, 0, err
	}
	st := res.Streams[0]
	if st.Width <= 0 || st.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", st.Width, st.Height)
	}
	return st.Width, st.Height, nil
}

// GetVideoPixelFormat returns the pixel format name of the first video stream.
func GetVideoPixelFormat(ctx context.Context, path string) (string, error) {
	res, err := probe(ctx, path, "-show_entries", "stream=pix_fmt")
	if err != nil {
		return "", err
	}
	if res.Streams[0].PixFmt == "" {
		return "", fmt.Errorf("no pixel format reported for %s", path)
	}
	return res.Streams[0].PixFmt, nil
}

// GetTotalFrames uses ffprobe to count frames for the progress bar.
// It returns 0 if the count fails, allowing the caller to fall back to a spinner.
func GetTotalFrames(ctx context.Context, path string) int {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  ffprobe not found. Cannot provide a progress bar estimation because of this.\n")
		return 0
	}

	// Fast path: container metadata. Instant, but may be "N/A" for VFR.
	if res, err := probe(ctx, path, "-show_entries", "stream=nb_frames"); err == nil {
		if count, err := strconv.Atoi(res.Streams[0].NbFrames); err == nil && count > 0 {
			return count
		}
	}

	// Slow path: count packets.
	fmt.Fprintf(os.Stderr, "⏳ Metadata missing. Counting frames (this may take a moment)...\n")
	res, err := probe(ctx, path, "-count_packets", "-show_entries", "stream=nb_read_packets")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 0
	}
	count, err := strconv.Atoi(res.Streams[0].NbReadPackets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ffprobe integer parse error: %v\n", err)
		return 0
	}
	return count
}

// --- 3. FFmpeg Pipes ---

// NewFFmpegRawDecoder decodes path to raw frames of pixFmt on Stdout,
// converting when the source is stored in another format.
func NewFFmpegRawDecoder(ctx context.Context, path, pixFmt string) *SafeCommand {
	return NewSafeCommand(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error",
		"-i", path, "-an", "-f", "rawvideo", "-pix_fmt", pixFmt, "-")
}

// NewFFmpegRawEncoder encodes raw yuv420p frames read from Stdin to output.
// Audio and other streams are copied from source when it is not empty.
func NewFFmpegRawEncoder(ctx context.Context, source, output, codec string, fps float64, width, height int) *SafeCommand {
	args := []string{"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "yuv420p",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
	}
	if source != "" {
		args = append(args, "-i", source, "-map", "0:v:0", "-map", "1:a?", "-c:a", "copy")
	}
	args = append(args, "-c:v", codec, "-pix_fmt", "yuv420p", output)
	return NewSafeCommand(ctx, "ffmpeg", args...)
}

// DelogoFilterArg renders r for ffmpeg's own delogo filter. The band option
// no longer exists there, so it is folded into the rectangle, which is then
// clamped to the width x height frame.
func DelogoFilterArg(r types.Rect, show bool, width, height int) string {
	band := max(r.Band.Width, 0)
	if r.Band.Auto {
		band = types.DefaultAutoBand
		show = true
	}
	s := 0
	if show {
		s = 1
	}
	x0, y0 := max(r.X-band, 0), max(r.Y-band, 0)
	x1, y1 := min(r.X+r.W+band, width), min(r.Y+r.H+band, height)
	return fmt.Sprintf("delogo=x=%d:y=%d:w=%d:h=%d:show=%d",
		x0, y0, max(x1-x0, 0), max(y1-y0, 0), s)
}

// NewFFmpegDelogo runs the whole job inside ffmpeg using its delogo filter.
func NewFFmpegDelogo(ctx context.Context, input, output, codec, filter string) *SafeCommand {
	return NewSafeCommand(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
		"-i", input, "-vf", filter,
		"-c:v", codec, "-c:a", "copy", output)
}
