package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/darkprince558/pax/internal/audit"
	"github.com/darkprince558/pax/internal/digestx"
	"github.com/darkprince558/pax/internal/identity"
	"github.com/darkprince558/pax/internal/signer"
	"github.com/darkprince558/pax/internal/transport"
	"github.com/darkprince558/pax/internal/ui"
	"github.com/darkprince558/pax/pkg/protocol"
)

// RunReceiver binds port and serves transfer and DELETE connections one at
// a time, forever, until the listener itself fails or ctx is done. A
// per-connection failure never terminates the accept loop; a listener
// bind/listen failure is fatal and returned.
func RunReceiver(ctx context.Context, p *tea.Program, kp identity.KeyPair, port int, timeout time.Duration, outDir string, noHistory bool) error {
	sendMsg := newSendMsg(p)

	listener, err := transport.Listen(port)
	if err != nil {
		finalErr := fmt.Errorf("%w: %v", ErrNetwork, err)
		sendMsg(ui.ErrorMsg(finalErr))
		return finalErr
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	sendMsg(ui.StatusMsg(fmt.Sprintf("Listening on port %d...", port)))

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			sendMsg(ui.StatusMsg(fmt.Sprintf("Accept failed: %v", err)))
			continue
		}

		handleConnection(conn, kp, timeout, outDir, sendMsg, noHistory)
	}
}

// handleConnection serves exactly one accepted connection to completion:
// dispatch on a protocol.PeekSize-byte (7-byte, the length of "DELETE ")
// peek, then either the DELETE branch or the
// transfer-receive branch. Any failure here is logged and swallowed so the
// caller's accept loop keeps running.
func handleConnection(conn net.Conn, kp identity.KeyPair, timeout time.Duration, outDir string, sendMsg func(tea.Msg), noHistory bool) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		sendMsg(ui.StatusMsg(fmt.Sprintf("Could not set deadline: %v", err)))
		return
	}

	reader := bufio.NewReaderSize(conn, 4096)
	peeked, err := reader.Peek(protocol.PeekSize)
	if err != nil {
		sendMsg(ui.StatusMsg(fmt.Sprintf("Connection closed before handshake: %v", err)))
		return
	}

	if protocol.IsDeleteRequest(peeked) {
		handleDeleteRequest(conn, reader, sendMsg, noHistory)
		return
	}

	handleTransfer(conn, reader, kp, outDir, sendMsg, noHistory)
}

// handleTransfer implements the receiver's per-connection transfer state
// machine: decode the frame, open a timestamped artifact, stream the
// payload to disk, re-hash what was actually written, verify, and commit
// or delete.
func handleTransfer(conn net.Conn, reader *bufio.Reader, kp identity.KeyPair, outDir string, sendMsg func(tea.Msg), noHistory bool) {
	startTime := time.Now()

	hdr, err := protocol.DecodeFrame(reader)
	if err != nil {
		sendMsg(ui.StatusMsg(fmt.Sprintf("Bad frame: %v", err)))
		return
	}

	artifactName := timestampedName(hdr.Filename, startTime)
	artifactPath := filepath.Join(outDir, artifactName)

	out, err := os.Create(artifactPath)
	if err != nil {
		sendMsg(ui.ErrorMsg(fmt.Errorf("%w: %v", ErrSys, err)))
		return
	}

	sendMsg(ui.StatusMsg(fmt.Sprintf("Receiving %s...", hdr.Filename)))

	written, copyErr := streamToDisk(out, reader, sendMsg)
	out.Close()

	var digest [32]byte
	var verified bool
	var finalErr error

	if copyErr != nil {
		finalErr = fmt.Errorf("%w: %v", ErrNetwork, copyErr)
	} else {
		sendMsg(ui.ProgressMsg{SentBytes: written, TotalBytes: written + 1, Protocol: "TCP"})
		sendMsg(ui.ProgressMsg{SentBytes: 1, TotalBytes: 1, Protocol: "TCP"})
		digest, err = digestx.File(artifactPath)
		if err != nil {
			finalErr = fmt.Errorf("%w: %v", ErrSys, err)
		} else {
			verified = signer.Verify(digest, hdr.Signature, hdr.PublicKey[:])
			if !verified {
				finalErr = ErrMismatch
			}
		}
	}

	if finalErr != nil || !verified {
		os.Remove(artifactPath)
		sendMsg(ui.VerifiedMsg{OK: false, Artifact: artifactName})
	} else {
		sendMsg(ui.VerifiedMsg{OK: true, Artifact: artifactName})
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
			Role:        "receiver",
			FileName:    hdr.Filename,
			FileSize:    written,
			Digest:      fmt.Sprintf("%x", digest),
			PeerKey:     fmt.Sprintf("%x", hdr.PublicKey)[:16],
			Verified:    verified,
			Status:      status,
			Error:       errMsg,
			DurationSec: time.Since(startTime).Seconds(),
		})
	}
}

// streamToDisk copies the remainder of the connection (the payload, until
// the sender's half-close) to disk in fixed-size chunks, reporting
// progress along the way. The destination file is the thing that gets
// re-hashed, never the bytes seen in flight.
func streamToDisk(dst io.Writer, src io.Reader, sendMsg func(tea.Msg)) (int64, error) {
	buf := make([]byte, transport.ChunkSize)
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return total, writeErr
			}
			total += int64(n)
			sendMsg(ui.ProgressMsg{
				SentBytes:  total,
				TotalBytes: total + 1,
				Protocol:   "TCP",
			})
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

// timestampedName builds "<stem>_<YYYY-MM-DD_HH-MM-SS><ext>" from the
// original filename and the receiver's local time at transfer start. Two
// transfers landing in the same second collide and the later one
// overwrites — an accepted limitation, not a bug.
func timestampedName(original string, ts time.Time) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(original, ext)
	return fmt.Sprintf("%s_%s%s", stem, ts.Format("2006-01-02_15-04-05"), ext)
}
