// Package hexutil implements the encode/decode/verify hex-conversion
// utility from the original Pack toolset: a binary file on one side,
// its lowercase hex-string rendering on the other.
package hexutil

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrOddLength is returned when a hex file has an odd number of hex digits.
var ErrOddLength = errors.New("hexutil: odd-length hex input")

const bufSize = 64 * 1024

// EncodeFile reads the binary file at inPath and writes its lowercase hex
// rendering to outPath.
func EncodeFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("hexutil: open %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("hexutil: create %s: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	buf := make([]byte, bufSize)
	encoded := make([]byte, bufSize*2)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			hex.Encode(encoded, buf[:n])
			if _, err := w.Write(encoded[:n*2]); err != nil {
				return fmt.Errorf("hexutil: write %s: %w", outPath, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("hexutil: read %s: %w", inPath, readErr)
		}
	}
	return w.Flush()
}

// DecodeFile reads the hex text file at inPath and writes the decoded
// binary to outPath. Whitespace (including trailing newlines) is tolerated
// between chunks but the total digit count must be even.
func DecodeFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("hexutil: open %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("hexutil: create %s: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	var carry []byte

	buf := make([]byte, bufSize)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			chunk := append(carry, bytes.TrimSpace(buf[:n])...)
			usable := len(chunk) - (len(chunk) % 2)
			carry = append([]byte{}, chunk[usable:]...)

			decoded := make([]byte, usable/2)
			if _, err := hex.Decode(decoded, chunk[:usable]); err != nil {
				return fmt.Errorf("hexutil: decode %s: %w", inPath, err)
			}
			if _, err := w.Write(decoded); err != nil {
				return fmt.Errorf("hexutil: write %s: %w", outPath, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("hexutil: read %s: %w", inPath, readErr)
		}
	}

	if len(carry) > 0 {
		return ErrOddLength
	}
	return w.Flush()
}

// Verify round-trips inPath through EncodeFile/DecodeFile into temp files
// and reports whether the result is byte-identical to the original.
func Verify(inPath string) (bool, error) {
	hexPath := inPath + ".verify.hex"
	binPath := inPath + ".verify.bin"
	defer os.Remove(hexPath)
	defer os.Remove(binPath)

	if err := EncodeFile(inPath, hexPath); err != nil {
		return false, err
	}
	if err := DecodeFile(hexPath, binPath); err != nil {
		return false, err
	}

	original, err := os.ReadFile(inPath)
	if err != nil {
		return false, err
	}
	roundTripped, err := os.ReadFile(binPath)
	if err != nil {
		return false, err
	}
	return bytes.Equal(original, roundTripped), nil
}
