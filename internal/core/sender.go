package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"

	"github.com/darkprince558/pax/internal/audit"
	"github.com/darkprince558/pax/internal/digestx"
	"github.com/darkprince558/pax/internal/identity"
	"github.com/darkprince558/pax/internal/signer"
	"github.com/darkprince558/pax/internal/transport"
	"github.com/darkprince558/pax/internal/ui"
	"github.com/darkprince558/pax/internal/walker"
	"github.com/darkprince558/pax/pkg/protocol"
)

// RunSender sends the file at filePath to addr, signing its digest with kp;
// a directory is handed to sendDirectory and sent file by file. It
// reports progress and status through p when non-nil, falling back to
// plain stdout lines in headless mode.
func RunSender(ctx context.Context, p *tea.Program, kp identity.KeyPair, filePath, addr string, timeout time.Duration, noHistory bool) error {
	startTime := time.Now()
	var finalErr error
	var fileSize int64
	var digestHex string

	sendMsg := newSendMsg(p)

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
			Role:        "sender",
			FileName:    filepath.Base(filePath),
			FileSize:    fileSize,
			Digest:      digestHex,
			PeerKey:     fmt.Sprintf("%x", kp.Public)[:16],
			Status:      status,
			Error:       errMsg,
			DurationSec: time.Since(startTime).Seconds(),
		})
	}()

	info, err := os.Stat(filePath)
	if err != nil {
		finalErr = fmt.Errorf("%w: %v", ErrInputNotFound, err)
		sendMsg(ui.ErrorMsg(finalErr))
		return finalErr
	}

	if info.IsDir() {
		finalErr = sendDirectory(ctx, sendMsg, kp, filePath, addr, timeout, noHistory)
		return finalErr
	}

	fileSize = info.Size()
	digest, err := sendOneFile(ctx, sendMsg, kp, filePath, info.Name(), fileSize, addr, timeout)
	digestHex = fmt.Sprintf("%x", digest)
	if err != nil {
		finalErr = err
	}
	return finalErr
}

// sendDirectory walks root with internal/walker and sends every file that
// survives .packignore filtering. The spec's chosen tie-break: on a failed
// file, traversal continues but the FIRST non-OK error is what gets
// returned and recorded.
func sendDirectory(ctx context.Context, sendMsg func(tea.Msg), kp identity.KeyPair, root, addr string, timeout time.Duration, noHistory bool) error {
	ignore, err := walker.LoadIgnoreList(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSys, err)
	}

	var firstErr error
	err = walker.Walk(root, ignore, func(e walker.Entry) error {
		info, statErr := os.Stat(e.AbsPath)
		if statErr != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %v", ErrInputNotFound, statErr)
			}
			return nil
		}

		startTime := time.Now()
		digest, sendErr := sendOneFile(ctx, sendMsg, kp, e.AbsPath, e.RelPath, info.Size(), addr, timeout)

		if !noHistory {
			status := "success"
			errMsg := ""
			if sendErr != nil {
				status = "failed"
				errMsg = sendErr.Error()
			}
			audit.WriteEntry(audit.LogEntry{
				Timestamp:   startTime,
				Role:        "sender",
				FileName:    e.RelPath,
				FileSize:    info.Size(),
				Digest:      fmt.Sprintf("%x", digest),
				PeerKey:     fmt.Sprintf("%x", kp.Public)[:16],
				Status:      status,
				Error:       errMsg,
				DurationSec: time.Since(startTime).Seconds(),
			})
		}

		if sendErr != nil && firstErr == nil {
			firstErr = sendErr
		}
		return nil
	})
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("%w: %v", ErrSys, err)
	}
	return firstErr
}

// sendOneFile implements the spec's Sender algorithm for a single file:
// digest, sign, dial, frame, stream, close.
func sendOneFile(ctx context.Context, sendMsg func(tea.Msg), kp identity.KeyPair, absPath, wireName string, fileSize int64, addr string, timeout time.Duration) ([32]byte, error) {
	digest, err := digestx.File(absPath)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrSys, err)
	}
	sig := signer.Sign(digest, kp.Private)

	f, err := os.Open(absPath)
	if err != nil {
		return digest, fmt.Errorf("%w: %v", ErrInputNotFound, err)
	}
	defer f.Close()

	fileLock := flock.New(absPath)
	locked, lockErr := fileLock.TryLock()
	if lockErr != nil {
		sendMsg(ui.StatusMsg(fmt.Sprintf("Warning: could not lock %s: %v", absPath, lockErr)))
	} else if !locked {
		sendMsg(ui.StatusMsg(fmt.Sprintf("Warning: %s is in use by another process", absPath)))
	} else {
		defer fileLock.Unlock()
	}

	sendMsg(ui.StatusMsg(fmt.Sprintf("Connecting to %s...", addr)))
	conn, err := transport.Dial(addr, timeout)
	if err != nil {
		return digest, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer conn.Close()

	var pubKey [protocol.PublicKeySize]byte
	copy(pubKey[:], kp.Public)

	baseName := filepath.Base(wireName)
	if err := protocol.EncodeFrame(conn, pubKey, sig, baseName); err != nil {
		return digest, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	sendMsg(ui.StatusMsg("Sending payload..."))
	if _, err := streamPayload(ctx, conn, f, fileSize, sendMsg); err != nil {
		return digest, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return digest, nil
}

// streamPayload copies src to dst in transport.ChunkSize pieces, reporting
// progress after each chunk.
func streamPayload(ctx context.Context, dst io.Writer, src io.Reader, totalSize int64, sendMsg func(tea.Msg)) (int64, error) {
	buf := make([]byte, transport.ChunkSize)
	var sent int64
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return sent, writeErr
			}
			sent += int64(n)

			elapsed := time.Since(start).Seconds()
			var speed float64
			if elapsed > 0 {
				speed = float64(sent) / elapsed
			}
			var eta time.Duration
			if speed > 0 && totalSize > sent {
				eta = time.Duration(float64(totalSize-sent)/speed) * time.Second
			}
			sendMsg(ui.ProgressMsg{
				SentBytes:  sent,
				TotalBytes: maxInt64(totalSize, 1),
				Speed:      speed,
				ETA:        eta,
				Protocol:   "TCP",
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return sent, readErr
		}
	}
	return sent, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// newSendMsg builds the UI-message forwarder shared by sender and receiver:
// when p is non-nil messages go through the Bubble Tea program, otherwise
// they're printed directly for headless/scripted use.
func newSendMsg(p *tea.Program) func(tea.Msg) {
	return func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
			return
		}
		switch m := msg.(type) {
		case ui.ErrorMsg:
			fmt.Println("Error:", m)
		case ui.StatusMsg:
			fmt.Println("Status:", m)
		case ui.ProgressMsg:
			if m.SentBytes >= m.TotalBytes && m.TotalBytes > 0 {
				fmt.Println("Done!")
			}
		case ui.VerifiedMsg:
			if m.OK {
				fmt.Println("Verified:", m.Artifact)
			} else {
				fmt.Println("Signature mismatch, discarded:", m.Artifact)
			}
		}
	}
}
