package e2e

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const binaryPath = "../bin/pax"

func TestMain(m *testing.M) {
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/pax")
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build pax: %v\n%s\n", err, out)
		os.Exit(1)
	}
	code := m.Run()
	os.Remove(binaryPath)
	os.Exit(code)
}

// freePort asks the OS for an ephemeral port, then immediately releases it.
// There's a race against another process grabbing it first, acceptable for
// a local test harness.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func newHomeEnv(t *testing.T, home string) []string {
	env := os.Environ()
	filtered := env[:0]
	for _, e := range env {
		if len(e) >= 5 && e[:5] == "HOME=" {
			continue
		}
		filtered = append(filtered, e)
	}
	return append(filtered, "HOME="+home)
}

func runPax(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = newHomeEnv(t, home)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

func keygen(t *testing.T, home string) {
	t.Helper()
	out, err := runPax(t, home, "keygen")
	require.NoError(t, err, out)
}

func TestKeygenRoundTrip(t *testing.T) {
	home := t.TempDir()
	keygen(t, home)

	pub, err := os.ReadFile(filepath.Join(home, ".pax", "id_ed25519.pub"))
	require.NoError(t, err)
	require.Len(t, pub, 32)

	priv, err := os.ReadFile(filepath.Join(home, ".pax", "id_ed25519"))
	require.NoError(t, err)
	require.Len(t, priv, 64)
}

func TestSingleFileTransfer(t *testing.T) {
	home := t.TempDir()
	keygen(t, home)

	srcDir := t.TempDir()
	outDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "notes.txt")
	content := []byte("hello world")
	require.NoError(t, os.WriteFile(srcFile, content, 0o644))

	port := freePort(t)

	recvCmd := exec.Command(binaryPath, "recv", fmt.Sprint(port), "--dir", outDir, "--headless")
	recvCmd.Env = newHomeEnv(t, home)
	var recvOut bytes.Buffer
	recvCmd.Stdout = &recvOut
	require.NoError(t, recvCmd.Start())
	defer recvCmd.Process.Kill()

	time.Sleep(300 * time.Millisecond)

	sendOut, err := runPax(t, home, "send", srcFile, fmt.Sprintf("127.0.0.1:%d", port), "--headless")
	require.NoError(t, err, sendOut)

	time.Sleep(300 * time.Millisecond)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "notes_")

	got, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestDeleteHappyPath(t *testing.T) {
	home := t.TempDir()
	keygen(t, home)

	outDir := t.TempDir()
	target := filepath.Join(outDir, "target.dat")
	require.NoError(t, os.WriteFile(target, []byte("bye"), 0o644))

	port := freePort(t)
	recvCmd := exec.Command(binaryPath, "recv", fmt.Sprint(port), "--dir", outDir, "--headless")
	recvCmd.Env = newHomeEnv(t, home)
	require.NoError(t, recvCmd.Start())
	defer recvCmd.Process.Kill()

	time.Sleep(300 * time.Millisecond)

	out, err := runPax(t, home, "delete", target, "127.0.0.1", fmt.Sprint(port))
	require.NoError(t, err, out)
	require.Contains(t, out, "OK")

	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr))

	// The accept loop must still be serving: a second connection to the
	// listener should still succeed (we reuse delete against a now-missing
	// file, which is expected to fail cleanly rather than hang).
	out2, err2 := runPax(t, home, "delete", target, "127.0.0.1", fmt.Sprint(port))
	require.Error(t, err2)
	require.Contains(t, out2, "ERROR")
}

func TestDirectorySyncWithIgnore(t *testing.T) {
	home := t.TempDir()
	keygen(t, home)

	srcDir := t.TempDir()
	outDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "b.log"), []byte("b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, ".packignore"), []byte(".log\n"), 0o644))

	port := freePort(t)
	recvCmd := exec.Command(binaryPath, "recv", fmt.Sprint(port), "--dir", outDir, "--headless")
	recvCmd.Env = newHomeEnv(t, home)
	require.NoError(t, recvCmd.Start())
	defer recvCmd.Process.Kill()

	time.Sleep(300 * time.Millisecond)

	out, err := runPax(t, home, "sync", srcDir, fmt.Sprintf("127.0.0.1:%d", port), "--headless")
	require.NoError(t, err, out)

	time.Sleep(300 * time.Millisecond)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotContains(t, e.Name(), "b")
	}
}

func TestHexRoundTrip(t *testing.T) {
	home := t.TempDir()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, []byte{0x00, 0xff, 0xa5, 0x5a}, 0o644))

	hexPath := filepath.Join(dir, "out.hex")
	out, err := runPax(t, home, "hex", "encode", in, hexPath)
	require.NoError(t, err, out)

	hexContent, err := os.ReadFile(hexPath)
	require.NoError(t, err)
	require.Equal(t, "00ffa55a", string(hexContent))

	binPath := filepath.Join(dir, "out.bin")
	out, err = runPax(t, home, "hex", "decode", hexPath, binPath)
	require.NoError(t, err, out)

	decoded, err := os.ReadFile(binPath)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0xff, 0xa5, 0x5a}, decoded)
}
