// Package window implements the JSONL Window Reader (C2): slicing a
// session file by 1-indexed line ranges. This is the only I/O surface
// the rest of the router uses to read agent transcripts — callers
// never hold a file descriptor across a sleep (spec §5).
package window

import (
	"bufio"
	"io"
	"os"
)

// CountLines returns 0 for a missing file, otherwise the
// newline-terminated line count.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	count := 0
	for {
		_, err := reader.ReadString('\n')
		if err == nil {
			count++
			continue
		}
		if err == io.EOF {
			return count, nil
		}
		return count, err
	}
}

// ReadLinesBetween returns the raw lines with 1-indexed positions
// strictly greater than start and, if end >= 0, at most end. Pass
// end = -1 to read to the end of file. Lines are returned without
// their trailing newline.
func ReadLinesBetween(path string, start, end int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	var out []string
	line := 0
	for {
		text, err := reader.ReadString('\n')
		if len(text) > 0 {
			line++
			if line > start && (end < 0 || line <= end) {
				if len(text) > 0 && text[len(text)-1] == '\n' {
					text = text[:len(text)-1]
				}
				out = append(out, text)
			}
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if end >= 0 && line >= end {
			return out, nil
		}
	}
}
