package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vaultguard/vaultguard/internal/config"
	"github.com/vaultguard/vaultguard/pkg/audit"
	"github.com/vaultguard/vaultguard/pkg/clipboard"
	"github.com/vaultguard/vaultguard/pkg/clock"
	"github.com/vaultguard/vaultguard/pkg/pinlock"
	"github.com/vaultguard/vaultguard/pkg/session"
	"github.com/vaultguard/vaultguard/pkg/store"
	"github.com/vaultguard/vaultguard/pkg/vault"
)

var (
	baseDir string
	cfg     config.Config

	durable *store.Bolt
	cache   *vault.Cache
	keys    *session.KeyCache
	monitor *session.Monitor
	pins    *pinlock.Guard
	auditor *audit.Logger
	core    *vault.Core
)

var rootCmd = &cobra.Command{
	Use:   "vaultguard",
	Short: "vaultguard manages a locally cached password vault",
	Long: `A local harness for the vault security core: master-password login,
PIN lock with exponential backoff, encrypted secret cache, clipboard
copy with auto-clear, and phishing-aware credential fill.

Each invocation is its own session. The session key lives only in
process memory; PIN state, failure counters, and the secret cache
persist on disk under ~/.vaultguard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".vaultguard")
		if err := os.MkdirAll(baseDir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", baseDir, err)
		}

		cfg, err = config.Load(filepath.Join(baseDir, "config.yaml"))
		if err != nil {
			return err
		}

		durable, err = store.OpenBolt(filepath.Join(baseDir, "state.db"))
		if err != nil {
			return err
		}
		cache, err = vault.OpenCache(filepath.Join(baseDir, "secrets.db"))
		if err != nil {
			return err
		}

		volatile := store.NewMemory()
		clk := clock.System()
		keys = session.NewKeyCache(volatile, cfg.KDFIterations)
		monitor = session.NewMonitor(volatile, durable, clk,
			time.Duration(cfg.LockTimeoutMinutes)*time.Minute)
		pins = pinlock.NewGuard(durable, keys, clk,
			cfg.MaxPINAttempts, time.Duration(cfg.MaxBackoffSeconds)*time.Second)
		auditor = audit.NewLogger(baseDir)

		var clip *clipboard.Manager
		if rw, err := clipboard.System(); err == nil {
			clip = clipboard.NewManager(rw)
		}

		core = vault.New(vault.Deps{
			Keys:         keys,
			Monitor:      monitor,
			Pins:         pins,
			Cache:        cache,
			Audit:        auditor,
			Clipboard:    clip,
			Transport:    &localTransport{durable: durable, cache: cache},
			ClipboardTTL: time.Duration(cfg.ClipboardTTLSeconds) * time.Second,
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cache != nil {
			_ = cache.Close()
		}
		if durable != nil {
			return durable.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(checkURLCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setTimeoutCmd)
	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(auditCmd)
}

// unlock prompts for the master password and opens a session for this
// process. Commands that touch secrets call it first.
func unlock(cmd *cobra.Command) error {
	password, err := readSecret("Master password: ")
	if err != nil {
		return err
	}
	if err := core.Login(cmd.Context(), password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// readSecret reads a line with terminal echo disabled.
func readSecret(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return value, nil
}

// readLine reads a single line from stdin, trimming the trailing
// newline.
func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
