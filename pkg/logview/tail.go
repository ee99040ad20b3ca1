package logview

import (
	"bytes"
	"os"
	"strings"

	"github.com/juliencaulet/acm-control/pkg/errors"
)

const tailBlockSize = 8192

// TailLines returns the last n lines of the file at path in original order.
// When the file holds fewer than n lines, all of them are returned. The file
// is read backwards in blocks, so large logs are not loaded whole.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("failed to open log file", err).WithContext("path", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewIOError("failed to stat log file", err).WithContext("path", path)
	}

	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	var buf []byte
	offset := size
	newlines := 0
	for offset > 0 && newlines <= n {
		readSize := int64(tailBlockSize)
		if readSize > offset {
			readSize = offset
		}
		offset -= readSize

		block := make([]byte, readSize)
		if _, err := f.ReadAt(block, offset); err != nil {
			return nil, errors.NewIOError("failed to read log file", err).WithContext("path", path)
		}
		newlines += bytes.Count(block, []byte{'\n'})
		buf = append(block, buf...)
	}

	text := strings.TrimSuffix(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
