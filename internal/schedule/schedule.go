// Package schedule loads timed logo rectangles and maps presentation
// timestamps onto them.
package schedule

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/andresmejia3/delogo/internal/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrConfig is returned when the schedule file cannot be opened or read.
	ErrConfig = errors.New("unable to load schedule")
	// ErrEmpty is returned when a schedule has no valid entries.
	ErrEmpty = errors.New("no rectangles found")
)

// maxLine is the longest schedule line that is parsed.
const maxLine = 2048

// Warning describes a schedule line that was skipped or is suspicious.
type Warning struct {
	File   string
	Line   int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Reason)
}

// Schedule is an immutable, timestamp-ordered list of rectangles.
type Schedule struct {
	name     string
	entries  []types.TimedRect
	warnings []Warning
}

// New builds a schedule from entries that were already validated, e.g. ones
// read back from the store. Entries are sorted by timestamp.
func New(name string, entries []types.TimedRect) (*Schedule, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	e := make([]types.TimedRect, len(entries))
	copy(e, entries)
	sort.SliceStable(e, func(i, j int) bool { return e[i].TS < e[j].TS })
	return &Schedule{name: name, entries: e}, nil
}

// Load reads a schedule file from disk.
func Load(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "schedule.Load",
			"file":     path,
			"error":    err.Error(),
		}).Error("Unable to open schedule")
		return nil, fmt.Errorf("%w %s: %v", ErrConfig, path, err)
	}
	defer f.Close()

	s, err := Parse(f, path)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "schedule.Load",
		"file":     path,
		"entries":  len(s.entries),
		"warnings": len(s.warnings),
	}).Debug("Schedule loaded")
	return s, nil
}

// Parse reads the text form:
//
//	# comment
//	<seconds> <x>:<y>:<w>:<h>[:<band>]
//	<seconds> 0
//
// Malformed lines are skipped with a warning. A timestamp that does not
// increase is warned about and kept; the result is sorted before returning.
func Parse(r io.Reader, name string) (*Schedule, error) {
	s := &Schedule{name: name}

	br := bufio.NewReaderSize(r, maxLine)

	lineno := 0
	var lastTS int64
	for {
		line, long, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrConfig, name, err)
		}
		lineno++
		if strings.HasPrefix(line, "#") {
			continue
		}
		if long {
			s.warn(lineno, "line too long")
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		tr, ok := parseLine(line)
		if !ok {
			s.warn(lineno, "syntax error")
			continue
		}
		if len(s.entries) > 0 && tr.TS <= lastTS {
			s.warn(lineno, "wrong time")
		}
		lastTS = tr.TS
		s.entries = append(s.entries, tr)
	}

	if len(s.entries) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "schedule.Parse",
			"file":     name,
		}).Error("No rectangles found")
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}

	sort.SliceStable(s.entries, func(i, j int) bool { return s.entries[i].TS < s.entries[j].TS })
	return s, nil
}

// readLine returns the next line without its terminator. A line that does
// not fit in maxLine bytes is drained to its end and reported as long; only
// its first chunk is returned.
func readLine(br *bufio.Reader) (string, bool, error) {
	chunk, more, err := br.ReadLine()
	if err != nil {
		return "", false, err
	}
	line := string(chunk)
	long := more
	for more {
		_, more, err = br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", true, err
		}
	}
	return line, long, nil
}

func (s *Schedule) warn(line int, reason string) {
	w := Warning{File: s.name, Line: line, Reason: reason}
	s.warnings = append(s.warnings, w)
	logrus.WithFields(logrus.Fields{
		"file": w.File,
		"line": w.Line,
	}).Warn(reason)
}

// parseLine accepts "<ts> x:y:w:h", "<ts> x:y:w:h:b" and "<ts> 0".
// Anything after the rectangle field is ignored, but the rectangle itself
// must be whole integers: "1:2:3:4abc" or a sixth value rejects the line.
func parseLine(line string) (types.TimedRect, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return types.TimedRect{}, false
	}
	sec, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return types.TimedRect{}, false
	}

	parts := strings.Split(fields[1], ":")
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return types.TimedRect{}, false
		}
		vals[i] = v
	}

	tr := types.TimedRect{TS: int64(math.Floor(sec*1000 + 0.5))}
	switch len(vals) {
	case 1:
		if vals[0] != 0 {
			return types.TimedRect{}, false
		}
	case 4:
		tr.Rect = types.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	case 5:
		tr.Rect = types.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3], Band: types.BandFromInt(vals[4])}
	default:
		return types.TimedRect{}, false
	}
	return tr, true
}

// Format writes entries in the text form accepted by Parse.
func Format(w io.Writer, entries []types.TimedRect) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		sec := strconv.FormatFloat(float64(e.TS)/1000, 'f', -1, 64)
		var err error
		if e.Rect.IsZero() {
			_, err = fmt.Fprintf(bw, "%s 0\n", sec)
		} else {
			r := e.Rect
			_, err = fmt.Fprintf(bw, "%s %d:%d:%d:%d:%d\n", sec, r.X, r.Y, r.W, r.H, r.Band.Int())
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Name is the file or stored name the schedule came from.
func (s *Schedule) Name() string { return s.name }

// Len returns the number of entries.
func (s *Schedule) Len() int { return len(s.entries) }

// Entries returns a copy of the ordered entries.
func (s *Schedule) Entries() []types.TimedRect {
	out := make([]types.TimedRect, len(s.entries))
	copy(out, s.entries)
	return out
}

// Warnings returns the parse warnings collected while loading.
func (s *Schedule) Warnings() []Warning { return s.warnings }

// Advance moves cursor to the last entry whose timestamp is <= ts (in
// milliseconds), scanning from the previous position in either direction.
// A result of -1 means ts is before the first entry.
func (s *Schedule) Advance(cursor int, ts int64) int {
	n := len(s.entries)
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < -1 {
		cursor = -1
	}
	for cursor < n-1 && ts >= s.entries[cursor+1].TS {
		cursor++
	}
	for cursor >= 0 && ts < s.entries[cursor].TS {
		cursor--
	}
	return cursor
}

// At returns the rectangle selected by cursor; -1 gives the zero rectangle.
func (s *Schedule) At(cursor int) types.Rect {
	if cursor < 0 || cursor >= len(s.entries) {
		return types.Rect{}
	}
	return s.entries[cursor].Rect
}
