package logview

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backend.log")
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTailLines_LastNInOrder(t *testing.T) {
	var lines []string
	for i := 1; i <= 100; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	path := writeLog(t, lines)

	got, err := TailLines(path, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "line 91", got[0])
	assert.Equal(t, "line 100", got[9])
}

func TestTailLines_FewerLinesThanRequested(t *testing.T) {
	path := writeLog(t, []string{"only", "three", "lines"})

	got, err := TailLines(path, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"only", "three", "lines"}, got)
}

func TestTailLines_EmptyFile(t *testing.T) {
	path := writeLog(t, nil)

	got, err := TailLines(path, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTailLines_NoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backend.log")
	require.NoError(t, os.WriteFile(path, []byte("first\nsecond\nunterminated"), 0o644))

	got, err := TailLines(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "unterminated"}, got)
}

func TestTailLines_SpansBlockBoundary(t *testing.T) {
	// Each line is longer than the read block, forcing multiple backward reads.
	long := strings.Repeat("x", tailBlockSize+100)
	path := writeLog(t, []string{long + "1", long + "2", long + "3"})

	got, err := TailLines(path, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, long+"2", got[0])
	assert.Equal(t, long+"3", got[1])
}

func TestTailLines_ManyShortLinesAcrossBlocks(t *testing.T) {
	// Enough short lines to span several read blocks.
	var lines []string
	for i := 1; i <= 5000; i++ {
		lines = append(lines, fmt.Sprintf("entry %04d", i))
	}
	path := writeLog(t, lines)

	got, err := TailLines(path, 3000)
	require.NoError(t, err)
	require.Len(t, got, 3000)
	assert.Equal(t, "entry 2001", got[0])
	assert.Equal(t, "entry 5000", got[2999])
}

func TestTailLines_MissingFile(t *testing.T) {
	_, err := TailLines(filepath.Join(t.TempDir(), "absent.log"), 10)
	assert.Error(t, err)
}

func TestTailLines_NonPositiveCount(t *testing.T) {
	path := writeLog(t, []string{"line"})

	got, err := TailLines(path, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
