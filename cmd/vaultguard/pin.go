package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultguard/vaultguard/pkg/pinlock"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the PIN lock",
}

var pinSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set or replace the PIN",
	Long: `Sets the quick-unlock PIN. Requires the master password first; a PIN
only ever guards a live session key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(cmd); err != nil {
			return err
		}

		pin1, err := readSecret("New PIN (4-6 digits): ")
		if err != nil {
			return err
		}
		pin2, err := readSecret("Confirm PIN: ")
		if err != nil {
			return err
		}
		if string(pin1) != string(pin2) {
			return errors.New("pins do not match")
		}

		if err := core.SetPIN(string(pin1)); err != nil {
			return fmt.Errorf("failed to set pin: %w", err)
		}
		fmt.Println("PIN set.")
		return nil
	},
}

var pinVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run a PIN attempt through the lock state machine",
	Long: `Verifies a PIN against the stored record. Failure counters and the
exponential backoff persist across invocations; reaching the failure
threshold destroys the PIN record and all local security data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := readSecret("PIN: ")
		if err != nil {
			return err
		}

		res, err := core.VerifyPIN(string(pin))
		if err != nil {
			var lockout *pinlock.LockoutError
			if errors.As(err, &lockout) {
				return fmt.Errorf("locked out, retry in %v", lockout.Remaining)
			}
			return err
		}

		switch res.Status {
		case pinlock.StatusUnlocked:
			fmt.Println("PIN accepted.")
		case pinlock.StatusLoginRequired:
			fmt.Println("PIN accepted, but no session key is cached. Run `vaultguard login`.")
		case pinlock.StatusWrongPIN:
			fmt.Printf("Wrong PIN. %d attempts left before wipe.\n", res.AttemptsLeft)
		case pinlock.StatusWiped:
			fmt.Println("Failure threshold reached. PIN record and local security data destroyed.")
		}
		return nil
	},
}

func init() {
	pinCmd.AddCommand(pinSetCmd)
	pinCmd.AddCommand(pinVerifyCmd)
}
