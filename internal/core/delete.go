package core

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/darkprince558/pax/internal/audit"
	"github.com/darkprince558/pax/internal/transport"
	"github.com/darkprince558/pax/internal/ui"
	"github.com/darkprince558/pax/pkg/protocol"
)

// DeleteFile dials addr, sends a DELETE request for path, and reads up to
// 128 bytes of response. A literal "OK" prefix is success; any other
// well-formed reply is ErrSys; a connection failure is ErrNetwork.
func DeleteFile(addr, path string, timeout time.Duration, noHistory bool) error {
	startTime := time.Now()
	var finalErr error

	defer func() {
		if noHistory {
			return
		}
		status := "success"
		errMsg := ""
		if finalErr != nil {
			status = "failed"
			errMsg = finalErr.Error()
		}
		audit.WriteEntry(audit.LogEntry{
			Timestamp:   startTime,
			Role:        "delete",
			FileName:    path,
			Status:      status,
			Error:       errMsg,
			DurationSec: time.Since(startTime).Seconds(),
		})
	}()

	conn, err := transport.Dial(addr, timeout)
	if err != nil {
		finalErr = fmt.Errorf("%w: %v", ErrNetwork, err)
		return finalErr
	}
	defer conn.Close()

	if err := protocol.EncodeDeleteRequest(conn, path); err != nil {
		finalErr = fmt.Errorf("%w: %v", ErrNetwork, err)
		return finalErr
	}

	buf := make([]byte, 128)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		finalErr = fmt.Errorf("%w: %v", ErrNetwork, err)
		return finalErr
	}

	resp := buf[:n]
	if bytes.HasPrefix(resp, []byte("OK")) {
		return nil
	}
	finalErr = fmt.Errorf("%w: %s", ErrSys, bytes.TrimSpace(resp))
	return finalErr
}

// handleDeleteRequest serves the receiver-side DELETE branch: parse the
// request line, remove the named file, and reply OK or ERROR. Paths are
// passed to the filesystem exactly as given — the core performs no
// confinement or sanitization (see the project's open design questions).
func handleDeleteRequest(conn net.Conn, reader *bufio.Reader, sendMsg func(tea.Msg), noHistory bool) {
	startTime := time.Now()

	path, err := protocol.DecodeDeleteRequest(reader)
	if err != nil {
		sendMsg(ui.StatusMsg(fmt.Sprintf("Malformed delete request: %v", err)))
		return
	}

	var finalErr error
	if err := os.Remove(path); err != nil {
		finalErr = fmt.Errorf("%w: %v", ErrSys, err)
		fmt.Fprintf(conn, "ERROR: %v\n", err)
		sendMsg(ui.StatusMsg(fmt.Sprintf("Delete %s failed: %v", path, err)))
	} else {
		fmt.Fprint(conn, "OK\n")
		sendMsg(ui.StatusMsg(fmt.Sprintf("Deleted %s", path)))
	}

	if !noHistory {
		status := "success"
		errMsg := ""
		if finalErr != nil {
			status = "failed"
			errMsg = finalErr.Error()
		}
		audit.WriteEntry(audit.LogEntry{
			Timestamp:   startTime,
			Role:        "delete",
			FileName:    path,
			Status:      status,
			Error:       errMsg,
			DurationSec: time.Since(startTime).Seconds(),
		})
	}
}
