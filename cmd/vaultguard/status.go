package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show account and lock state",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, initialized, err := durable.Get(saltEntry)
		if err != nil {
			return err
		}
		fmt.Printf("Initialized:    %v\n", initialized)

		hasPIN, err := pins.HasPIN()
		if err != nil {
			return err
		}
		fmt.Printf("PIN configured: %v\n", hasPIN)

		if hasPIN {
			attempts, err := pins.FailedAttempts()
			if err != nil {
				return err
			}
			fmt.Printf("Failed attempts: %d of %d\n", attempts, cfg.MaxPINAttempts)

			remaining, err := pins.RemainingLockout()
			if err != nil {
				return err
			}
			if remaining > 0 {
				fmt.Printf("Locked out for: %v\n", remaining.Round(time.Second))
			}
		}

		timeout, err := monitor.Timeout()
		if err != nil {
			return err
		}
		fmt.Printf("Lock timeout:   %v\n", timeout)

		records, err := cache.List()
		if err != nil {
			return err
		}
		fmt.Printf("Cached secrets: %d\n", len(records))
		return nil
	},
}

var setTimeoutCmd = &cobra.Command{
	Use:   "set-timeout <minutes>",
	Short: "Set the inactivity lock timeout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var minutes int
		if _, err := fmt.Sscanf(args[0], "%d", &minutes); err != nil || minutes <= 0 {
			return fmt.Errorf("invalid timeout %q, want a positive number of minutes", args[0])
		}
		if err := monitor.SetTimeout(minutes); err != nil {
			return err
		}
		fmt.Printf("Lock timeout set to %dm.\n", minutes)
		return nil
	},
}
