package logging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Tail returns up to limit trailing lines of the log at path and the offset
// just past them. A missing file reads as empty.
func Tail(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	lines, offset, err := readLines(file)
	if err != nil {
		return nil, 0, err
	}
	if limit >= 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, offset, nil
}

// Follow polls the log at path from offset and calls emit for every complete
// line appended after it, until ctx ends. A file that shrinks is reread from
// the start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	lines, read, err := readLines(file)
	if err != nil {
		return offset, err
	}
	for _, line := range lines {
		emit(line)
	}
	return offset + read, nil
}

// readLines reads complete lines from r. A trailing line without a newline is
// left for the next read, so the returned byte count stops before it.
func readLines(r io.Reader) ([]string, int64, error) {
	reader := bufio.NewReader(r)
	var (
		lines []string
		read  int64
	)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, read, nil
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		read += int64(len(line))
		lines = append(lines, line[:len(line)-1])
	}
}
