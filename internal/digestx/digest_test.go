package digestx

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	d1, err := File(path)
	require.NoError(t, err)
	d2, err := File(path)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestFile_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := File(path)
	require.NoError(t, err)

	want, err := Reader(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestFile_OpenFailed(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, ErrOpenFailed)
}

func TestReader_ChunkBoundaryAgnostic(t *testing.T) {
	data := strings.Repeat("x", bufSize+17)

	whole, err := Reader(strings.NewReader(data))
	require.NoError(t, err)

	chunked, err := Reader(&slowReader{data: []byte(data)})
	require.NoError(t, err)

	require.Equal(t, whole, chunked)
}

// slowReader returns at most a handful of bytes per call, forcing Reader to
// cross buffer boundaries at arbitrary offsets.
type slowReader struct {
	data []byte
	off  int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := 3
	if n > len(p) {
		n = len(p)
	}
	if r.off+n > len(r.data) {
		n = len(r.data) - r.off
	}
	copy(p, r.data[r.off:r.off+n])
	r.off += n
	return n, nil
}
