package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/darkprince558/pax/internal/audit"
	"github.com/darkprince558/pax/internal/config"
	"github.com/darkprince558/pax/internal/core"
	"github.com/darkprince558/pax/internal/hexutil"
	"github.com/darkprince558/pax/internal/identity"
	"github.com/darkprince558/pax/internal/ui"
)

var (
	flagHeadless  bool
	flagNoHistory bool
	flagTimeout   time.Duration
	flagOutDir    string
)

func main() {
	root := &cobra.Command{
		Use:   "pax",
		Short: "Signed, content-addressed file transfer between two peers",
	}
	root.PersistentFlags().BoolVar(&flagHeadless, "headless", false, "disable the TUI and print plain status lines")
	root.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "do not record this invocation in ~/.pax/history.jsonl")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", config.DefaultSocketTimeout, "per-connection socket timeout")

	root.AddCommand(
		keygenCmd(),
		sendCmd(),
		sendPubkeyCmd(),
		recvCmd(),
		deleteCmd(),
		syncCmd(),
		hexCmd(),
		historyCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, core.ErrInputNotFound):
		return 2
	case errors.Is(err, core.ErrSys):
		return 3
	case errors.Is(err, core.ErrUsage):
		return 4
	case errors.Is(err, core.ErrNetwork):
		return 5
	case errors.Is(err, core.ErrMismatch):
		return 6
	default:
		return 1
	}
}

func loadOrGenerateKeyPair() (identity.KeyPair, error) {
	pubPath, privPath, err := identity.Paths()
	if err != nil {
		return identity.KeyPair{}, fmt.Errorf("%w: %v", core.ErrSys, err)
	}
	kp, err := identity.Load(pubPath, privPath)
	if err != nil {
		return identity.KeyPair{}, fmt.Errorf("no identity found, run 'pax keygen' first: %w", core.ErrUsage)
	}
	return kp, nil
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate and persist a new Ed25519 identity under ~/.pax",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := identity.Generate()
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrSys, err)
			}
			pubPath, privPath, err := identity.Paths()
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrSys, err)
			}
			if err := identity.Save(kp, pubPath, privPath); err != nil {
				return fmt.Errorf("%w: %v", core.ErrSys, err)
			}
			fmt.Printf("Identity saved to %s\n", filepath.Dir(pubPath))
			fmt.Printf("Public key: %x\n", kp.Public)
			return nil
		},
	}
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <path> <host:port>",
		Short: "Sign and send a file or directory to a listening peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(args[0], args[1])
		},
	}
	return cmd
}

func sendPubkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-pubkey <host:port>",
		Short: "Send this identity's public key file to a listening peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pubPath, _, err := identity.Paths()
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrSys, err)
			}
			return runSend(pubPath, args[0])
		},
	}
}

func runSend(path, addr string) error {
	kp, err := loadOrGenerateKeyPair()
	if err != nil {
		return err
	}
	if !hasPort(addr) {
		addr = fmt.Sprintf("%s:%d", addr, config.DefaultPort)
	}

	clipboard.WriteAll(fmt.Sprintf("%x", kp.Public))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalCancel(cancel)

	fingerprint := fmt.Sprintf("%x", kp.Public)

	if flagHeadless {
		fmt.Printf("Public key (copied to clipboard): %s\n", fingerprint)
		return core.RunSender(ctx, nil, kp, path, addr, flagTimeout, flagNoHistory)
	}

	model := ui.NewModel(ui.RoleSender, filepath.Base(path), fingerprint)
	p := tea.NewProgram(model)

	var wg sync.WaitGroup
	wg.Add(1)
	var sendErr error
	go func() {
		defer wg.Done()
		sendErr = core.RunSender(ctx, p, kp, path, addr, flagTimeout, flagNoHistory)
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSys, err)
	}
	cancel()
	wg.Wait()
	return sendErr
}

func recvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recv <port>",
		Short: "Listen for signed transfers and DELETE requests on a port",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port := config.DefaultPort
			if len(args) == 1 {
				p, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("%w: invalid port %q", core.ErrUsage, args[0])
				}
				port = p
			}
			return runRecv(port)
		},
	}
	cmd.Flags().StringVar(&flagOutDir, "dir", ".", "directory to write received artifacts into")
	return cmd
}

func runRecv(port int) error {
	kp, err := loadOrGenerateKeyPair()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalCancel(cancel)

	if flagHeadless {
		fmt.Printf("Listening on port %d...\n", port)
		return core.RunReceiver(ctx, nil, kp, port, flagTimeout, flagOutDir, flagNoHistory)
	}

	model := ui.NewModel(ui.RoleReceiver, "", fmt.Sprintf("%x", kp.Public))
	p := tea.NewProgram(model)

	go core.RunReceiver(ctx, p, kp, port, flagTimeout, flagOutDir, flagNoHistory)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSys, err)
	}
	cancel()
	return nil
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path> <host> <port>",
		Short: "Ask a peer receiver to remove a named file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, host, portStr := args[0], args[1], args[2]
			if _, err := strconv.Atoi(portStr); err != nil {
				return fmt.Errorf("%w: invalid port %q", core.ErrUsage, portStr)
			}
			addr := net.JoinHostPort(host, portStr)
			if err := core.DeleteFile(addr, path, flagTimeout, flagNoHistory); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <dir> [host[:port]]",
		Short: "Send every non-ignored file under a directory to a peer",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			addr := fmt.Sprintf("127.0.0.1:%d", config.DefaultPort)
			if len(args) == 2 {
				addr = args[1]
				if !hasPort(addr) {
					addr = fmt.Sprintf("%s:%d", addr, config.DefaultPort)
				}
			}
			return runSend(dir, addr)
		},
	}
}

func hexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hex",
		Short: "Binary/hex-text conversion utility",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encode <input> <output.hex>",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := hexutil.EncodeFile(args[0], args[1]); err != nil {
					return fmt.Errorf("%w: %v", core.ErrSys, err)
				}
				fmt.Printf("encoded to hex %s\n", args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "decode <input.hex> <output>",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := hexutil.DecodeFile(args[0], args[1]); err != nil {
					return fmt.Errorf("%w: %v", core.ErrSys, err)
				}
				fmt.Printf("decoded to binary %s\n", args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify <input> <output.hex>",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := hexutil.EncodeFile(args[0], args[1]); err != nil {
					return fmt.Errorf("%w: %v", core.ErrSys, err)
				}
				ok, err := hexutil.Verify(args[0])
				if err != nil {
					return fmt.Errorf("%w: %v", core.ErrSys, err)
				}
				if !ok {
					return fmt.Errorf("%w: round-trip mismatch", core.ErrMismatch)
				}
				fmt.Println("verify OK")
				return nil
			},
		},
	)
	return cmd
}

func historyCmd() *cobra.Command {
	clear := false
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show or inspect past transfers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				if err := audit.ClearHistory(); err != nil {
					return fmt.Errorf("%w: %v", core.ErrSys, err)
				}
				fmt.Println("History cleared.")
				return nil
			}
			if len(args) == 1 {
				audit.ShowDetail(args[0])
				return nil
			}
			audit.ShowHistory()
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all recorded history")
	return cmd
}

func installSignalCancel(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
}

func hasPort(addr string) bool {
	_, _, err := net.SplitHostPort(addr)
	return err == nil
}
