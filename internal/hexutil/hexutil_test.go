package hexutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFile_KnownVector(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.hex")

	require.NoError(t, os.WriteFile(in, []byte{0x00, 0xff, 0xa5, 0x5a}, 0o644))
	require.NoError(t, EncodeFile(in, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "00ffa55a", string(got))
}

func TestDecodeFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	hexPath := filepath.Join(dir, "mid.hex")
	out := filepath.Join(dir, "out.bin")

	payload := make([]byte, 200*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(in, payload, 0o644))

	require.NoError(t, EncodeFile(in, hexPath))
	require.NoError(t, DecodeFile(hexPath, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVerify_DetectsRoundTripIntegrity(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, []byte("hello world"), 0o644))

	ok, err := Verify(in)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDecodeFile_OddLength(t *testing.T) {
	dir := t.TempDir()
	hexPath := filepath.Join(dir, "odd.hex")
	out := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(hexPath, []byte("abc"), 0o644))

	err := DecodeFile(hexPath, out)
	require.ErrorIs(t, err, ErrOddLength)
}
