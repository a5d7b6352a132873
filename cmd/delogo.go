package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresmejia3/delogo/internal/delogo"
	"github.com/andresmejia3/delogo/internal/frame"
	"github.com/andresmejia3/delogo/internal/pipeline"
	"github.com/andresmejia3/delogo/internal/schedule"
	"github.com/andresmejia3/delogo/internal/types"
	"github.com/andresmejia3/delogo/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	backendNative = "native"
	backendFFmpeg = "ffmpeg"
)

// Options holds the configuration of a delogo run.
type Options struct {
	InputPath    string
	OutputPath   string
	Codec        string
	Backend      string
	X, Y, W, H   int
	Band         int
	Show         bool
	File         string
	ScheduleName string
}

var delogoOpts Options

var delogoCmd = &cobra.Command{
	Use:   "run",
	Short: "Remove a logo from a video by interpolating its surroundings",
	Long: `Rebuilds a rectangle of every frame from the pixels around it.

The rectangle is given with --x, --y, --w and --h, or follows a schedule of
timed rectangles (--file or a stored --schedule). Each schedule line reads

	<seconds> <x>:<y>:<w>:<h>[:<band>]

and "<seconds> 0" switches the removal off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runDelogo(cmd.Context(), delogoOpts)
	},
}

func init() {
	f := delogoCmd.Flags()
	f.StringVarP(&delogoOpts.InputPath, "input", "i", "", "Path to input video")
	f.StringVarP(&delogoOpts.OutputPath, "output", "o", "delogo.mp4", "Path to output video")
	f.StringVar(&delogoOpts.Codec, "codec", "libx264", "FFmpeg video encoder for the output")
	f.StringVar(&delogoOpts.Backend, "backend", backendNative, "Filter backend: native, ffmpeg")

	f.IntVar(&delogoOpts.X, "x", 0, "Logo left edge")
	f.IntVar(&delogoOpts.Y, "y", 0, "Logo top edge")
	f.IntVar(&delogoOpts.W, "w", 0, "Logo width")
	f.IntVar(&delogoOpts.H, "h", 0, "Logo height")
	f.IntVarP(&delogoOpts.Band, "band", "t", 1, "Blend band width (negative: visible band of 4 pixels)")
	f.BoolVar(&delogoOpts.Show, "show", false, "Paint the inner ring of the band black")
	f.StringVar(&delogoOpts.File, "file", "", "Schedule file of timed rectangles")
	f.StringVar(&delogoOpts.ScheduleName, "schedule", "", "Name of a schedule stored in the database")

	delogoCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(delogoCmd)
}

func validateDelogoFlags(opts *Options) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			utils.ShowError("Input file does not exist", err, nil)
			return err
		}
		utils.ShowError("Unable to access input file", err, nil)
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("is a directory")
		utils.ShowError("Input path is a directory, expected a video file", err, nil)
		return err
	}

	inAbs, _ := filepath.Abs(opts.InputPath)
	outAbs, _ := filepath.Abs(opts.OutputPath)
	if inAbs == outAbs {
		err := fmt.Errorf("input and output paths must be different to prevent file corruption")
		utils.ShowError("Configuration Error", err, nil)
		return err
	}

	if opts.Backend != backendNative && opts.Backend != backendFFmpeg {
		err := fmt.Errorf("invalid backend '%s'. Must be 'native' or 'ffmpeg'", opts.Backend)
		utils.ShowError("Configuration Error", err, nil)
		return err
	}

	if opts.File != "" && opts.ScheduleName != "" {
		err := fmt.Errorf("--file and --schedule cannot be used together")
		utils.ShowError("Configuration Error", err, nil)
		return err
	}

	if opts.Codec == "" {
		opts.Codec = "libx264"
	}
	return nil
}

// requestedRect is the fixed rectangle from the command line.
func (o Options) requestedRect() types.Rect {
	return types.Rect{X: o.X, Y: o.Y, W: o.W, H: o.H, Band: types.BandFromInt(o.Band)}
}

// loadSchedule returns the schedule selected by opts, or nil for a fixed
// rectangle.
func loadSchedule(ctx context.Context, opts Options) (*schedule.Schedule, error) {
	switch {
	case opts.File != "":
		return schedule.Load(opts.File)
	case opts.ScheduleName != "":
		if err := openDB(ctx); err != nil {
			return nil, err
		}
		entries, err := DB.LoadSchedule(ctx, opts.ScheduleName)
		if err != nil {
			return nil, err
		}
		return schedule.New(opts.ScheduleName, entries)
	}
	return nil, nil
}

func runDelogo(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := validateDelogoFlags(&opts); err != nil {
		return err
	}

	if opts.Backend == backendFFmpeg {
		return runFFmpegBackend(ctx, opts)
	}

	sched, err := loadSchedule(ctx, opts)
	if err != nil {
		utils.ShowError("Failed to load schedule", err, nil)
		return err
	}
	if sched != nil {
		fmt.Fprintf(os.Stderr, "🗓️  %d timed rectangles from %s\n", sched.Len(), sched.Name())
	}

	width, height, err := utils.GetVideoDimensions(ctx, opts.InputPath)
	if err != nil {
		utils.ShowError("Failed to determine video dimensions", err, nil)
		return err
	}
	fps, err := utils.GetVideoFPS(ctx, opts.InputPath)
	if err != nil {
		utils.ShowError("Failed to determine video FPS", err, nil)
		return err
	}
	totalFrames := utils.GetTotalFrames(ctx, opts.InputPath)

	srcFmt, err := utils.GetVideoPixelFormat(ctx, opts.InputPath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "runDelogo",
			"error":    err.Error(),
		}).Warn("Unable to probe pixel format")
	}

	pool := frame.NewPool(width, height)
	filter := delogo.New(delogo.Config{
		Rect:     opts.requestedRect(),
		Show:     opts.Show,
		Schedule: sched,
	}, delogo.WithAllocator(pool))

	pixFmt, err := decodeFormat(filter, srcFmt)
	if err != nil {
		utils.ShowError("Format negotiation failed", err, nil)
		return err
	}

	decoder := utils.NewFFmpegRawDecoder(ctx, opts.InputPath, string(pixFmt))
	decoderOut, err := decoder.StdoutPipe()
	if err != nil {
		utils.ShowError("Failed to create decoder pipe", err, nil)
		return err
	}
	reader := pipeline.NewReader(decoderOut, width, height, fps, pipeline.WithPool(pool))

	logrus.WithFields(logrus.Fields{
		"function": "runDelogo",
		"width":    width,
		"height":   height,
		"fps":      fps,
		"region":   fmt.Sprintf("%+v", filter.Region()),
	}).Debug("Filter configured")

	if err := decoder.Start(); err != nil {
		utils.ShowError("Failed to start decoder", err, decoder)
		return err
	}

	encoder := utils.NewFFmpegRawEncoder(ctx, opts.InputPath, opts.OutputPath, opts.Codec, fps, width, height)
	encoderIn, err := encoder.StdinPipe()
	if err != nil {
		utils.ShowError("Failed to create encoder pipe", err, nil)
		return err
	}
	if err := encoder.Start(); err != nil {
		utils.ShowError("Failed to start encoder", err, encoder)
		return err
	}

	var barTotal int64 = int64(totalFrames)
	if barTotal <= 0 {
		barTotal = -1 // Trigger spinner mode
	}
	bar := progressbar.NewOptions64(barTotal,
		progressbar.OptionSetDescription("🧽 Removing logo"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	n, runErr := pipeline.Run(ctx, reader, filter, pipeline.NewWriter(encoderIn), func() { bar.Add(1) })
	encoderIn.Close()
	if runErr != nil {
		cancel()
		encoder.Wait()
		decoder.Wait()
		utils.ShowError("Frame processing failed", runErr, decoder)
		return runErr
	}

	if err := encoder.Wait(); err != nil {
		utils.ShowError("Encoder process failed", err, encoder)
		return err
	}
	if err := decoder.Wait(); err != nil {
		utils.ShowError("Decoder process failed", err, decoder)
		return err
	}

	bar.Finish()
	fmt.Fprintf(os.Stderr, "\n🏁 Done. Wrote %d frames to %s\n", n, opts.OutputPath)
	return nil
}

// decodeFormat picks the raw format the decoder emits: the source's own
// format when the filter chain accepts it, otherwise yuv420p converted by
// ffmpeg.
func decodeFormat(q delogo.FormatQuerier, source string) (frame.Format, error) {
	if q.QueryFormat(frame.Format(source)) {
		return frame.Format(source), nil
	}
	if !q.QueryFormat(frame.FormatYUV420P) {
		return "", fmt.Errorf("%w: filter chain rejects %s", frame.ErrUnsupportedFormat, frame.FormatYUV420P)
	}
	logrus.WithFields(logrus.Fields{
		"function": "decodeFormat",
		"source":   source,
		"target":   frame.FormatYUV420P,
	}).Debug("Decoder converts the source pixel format")
	return frame.FormatYUV420P, nil
}

// runFFmpegBackend hands the fixed rectangle to ffmpeg's delogo filter.
// That filter has no notion of timed rectangles.
func runFFmpegBackend(ctx context.Context, opts Options) error {
	if opts.File != "" || opts.ScheduleName != "" {
		logrus.WithFields(logrus.Fields{
			"function": "runFFmpegBackend",
			"file":     opts.File,
			"schedule": opts.ScheduleName,
		}).Warn("Schedule ignored by the ffmpeg backend")
	}

	width, height, err := utils.GetVideoDimensions(ctx, opts.InputPath)
	if err != nil {
		utils.ShowError("Failed to determine video dimensions", err, nil)
		return err
	}

	arg := utils.DelogoFilterArg(opts.requestedRect(), opts.Show, width, height)
	job := utils.NewFFmpegDelogo(ctx, opts.InputPath, opts.OutputPath, opts.Codec, arg)
	fmt.Fprintf(os.Stderr, "🎬 Running ffmpeg %s\n", arg)
	if err := job.Run(); err != nil {
		utils.ShowError("FFmpeg delogo failed", err, job)
		return err
	}
	fmt.Fprintf(os.Stderr, "🏁 Done. Wrote %s\n", opts.OutputPath)
	return nil
}
