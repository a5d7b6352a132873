package cmd

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/delogo/internal/delogo"
	"github.com/andresmejia3/delogo/internal/frame"
	"github.com/andresmejia3/delogo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateDelogoFlags(t *testing.T) {
	input := writeTemp(t, "in.mp4", "fake video content")
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name: "valid",
			opts: Options{InputPath: input, OutputPath: filepath.Join(dir, "out.mp4"), Backend: backendNative, Codec: "libx264"},
		},
		{
			name:    "missing input",
			opts:    Options{InputPath: filepath.Join(dir, "nope.mp4"), OutputPath: "out.mp4", Backend: backendNative},
			wantErr: "no such file",
		},
		{
			name:    "input is a directory",
			opts:    Options{InputPath: dir, OutputPath: "out.mp4", Backend: backendNative},
			wantErr: "is a directory",
		},
		{
			name:    "same input and output",
			opts:    Options{InputPath: input, OutputPath: input, Backend: backendNative},
			wantErr: "must be different",
		},
		{
			name:    "unknown backend",
			opts:    Options{InputPath: input, OutputPath: "out.mp4", Backend: "opencl"},
			wantErr: "invalid backend",
		},
		{
			name:    "file and stored schedule",
			opts:    Options{InputPath: input, OutputPath: "out.mp4", Backend: backendFFmpeg, File: "a.txt", ScheduleName: "a"},
			wantErr: "cannot be used together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDelogoFlags(&tt.opts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateDefaultsCodec(t *testing.T) {
	opts := Options{InputPath: writeTemp(t, "in.mp4", "x"), OutputPath: "out.mp4", Backend: backendNative}
	require.NoError(t, validateDelogoFlags(&opts))
	assert.Equal(t, "libx264", opts.Codec)
}

func TestRequestedRect(t *testing.T) {
	o := Options{X: 100, Y: 50, W: 40, H: 20, Band: 4}
	assert.Equal(t, types.Rect{X: 100, Y: 50, W: 40, H: 20, Band: types.Band{Width: 4}}, o.requestedRect())

	o.Band = -1
	assert.True(t, o.requestedRect().Band.Auto)
}

func TestLoadScheduleFromFile(t *testing.T) {
	path := writeTemp(t, "logo.txt", "# logo\n1 10:10:20:20\n5 0\n")

	s, err := loadSchedule(context.Background(), Options{File: path})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	s, err = loadSchedule(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = loadSchedule(context.Background(), Options{File: writeTemp(t, "empty.txt", "# nothing\n")})
	assert.Error(t, err)
}

func TestConnString(t *testing.T) {
	old := dbURL
	t.Cleanup(func() { dbURL = old })

	dbURL = "postgres://flag/db"
	assert.Equal(t, "postgres://flag/db", connString())

	dbURL = ""
	t.Setenv("POSTGRES_HOST", "pg")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "logos")
	t.Setenv("POSTGRES_PORT", "")
	assert.Equal(t, "postgres://u:p@pg:5432/logos", connString())

	t.Setenv("POSTGRES_HOST", "")
	assert.Equal(t, "postgres://localhost:5432/delogo", connString())
}

func TestDefaultScheduleName(t *testing.T) {
	assert.Equal(t, "news", defaultScheduleName("/data/schedules/news.txt"))
	assert.Equal(t, "plain", defaultScheduleName("plain"))
}

func TestWriteEntryTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeEntryTable(&buf, []types.TimedRect{
		{TS: 1500, Rect: types.Rect{X: 1, Y: 2, W: 3, H: 4, Band: types.Band{Width: 2}}},
		{TS: 3000},
		{TS: 4250, Rect: types.Rect{X: 5, Y: 6, W: 7, H: 8, Band: types.Band{Auto: true}}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"1.500s", "1", "2", "3", "4", "2"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"3.000s", "off"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"4.250s", "5", "6", "7", "8", "auto"}, strings.Fields(lines[4]))
}

func TestConfirm(t *testing.T) {
	tests := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	}
	for in, want := range tests {
		var out bytes.Buffer
		got := confirm(bufio.NewReader(strings.NewReader(in)), &out, "Drop?")
		assert.Equal(t, want, got, "input %q", in)
		assert.Equal(t, "Drop? [y/N]: ", out.String())
	}
}

type rejectAll struct{}

func (rejectAll) QueryFormat(frame.Format) bool { return false }

func TestDecodeFormat(t *testing.T) {
	filter := delogo.New(delogo.Config{})

	tests := map[string]frame.Format{
		"yuv420p":     frame.FormatYUV420P,
		"yuv420p10le": frame.FormatYUV420P,
		"rgb24":       frame.FormatYUV420P,
		"":            frame.FormatYUV420P,
	}
	for src, want := range tests {
		got, err := decodeFormat(filter, src)
		require.NoError(t, err, "source %q", src)
		assert.Equal(t, want, got, "source %q", src)
	}

	_, err := decodeFormat(rejectAll{}, "yuv420p")
	assert.ErrorIs(t, err, frame.ErrUnsupportedFormat)
}
