// Package stopwatch implements the Debug-Log Stop Watcher (C6, dialect
// A / Claude only): a byte-tail fallback signal for short turns that
// complete without a "turn_duration" system entry.
package stopwatch

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"time"
)

// stopEventPattern matches a debug-log line whose leading RFC3339-ish
// timestamp precedes "[DEBUG] Getting matching hook commands for
// Stop" (spec §4.6). The timestamp's fractional precision varies, so
// it is captured loosely; SawStopAt floors both it and the send time
// to milliseconds before comparing.
var stopEventPattern = regexp.MustCompile(`^(\S+)\s+\[DEBUG\]\s+Getting matching hook commands for Stop`)

// Watcher maintains a byte offset into one agent's debug log file.
type Watcher struct {
	Path   string
	offset int64
}

// New returns a watcher for the debug log at path. The caller builds
// the path; the original layout is "~/.claude/debug/{session_id}.txt".
func New(path string) *Watcher {
	return &Watcher{Path: path}
}

// SawStopAt reports whether a Stop hook-commands event with a
// timestamp >= sendTime appears in the newly appended bytes since the
// last call. It advances the internal offset. On truncation or
// rotation (file size shrinks below the stored offset) the offset is
// reset to zero and the whole file is rescanned.
func (w *Watcher) SawStopAt(sendTime time.Time) (bool, error) {
	f, err := os.Open(w.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() < w.offset {
		w.offset = 0
	}

	if _, err := f.Seek(w.offset, 0); err != nil {
		return false, err
	}
	data, err := readAll(f)
	if err != nil {
		return false, err
	}
	w.offset += int64(len(data))

	found := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		m := stopEventPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, perr := parseFlexibleTimestamp(m[1])
		if perr != nil {
			continue
		}
		// Floor both sides to milliseconds so comparisons are stable
		// regardless of whether the source carried sub-millisecond
		// precision.
		if !ts.Before(floorToMillis(sendTime)) {
			found = true
		}
	}
	return found, scanner.Err()
}

func readAll(f *os.File) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(f)
	return buf.Bytes(), err
}

func floorToMillis(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

func parseFlexibleTimestamp(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05.000",
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return floorToMillis(t), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q: %w", s, lastErr)
}
