package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultguard/vaultguard/pkg/vault"
)

var fillForce bool

// stdoutFiller prints the credentials, standing in for the content
// script that would receive them in the extension.
type stdoutFiller struct{}

func (stdoutFiller) Fill(username, password string) error {
	fmt.Printf("username: %s\npassword: %s\n", username, password)
	return nil
}

var fillCmd = &cobra.Command{
	Use:   "fill <id> <page-url>",
	Short: "Deliver a secret's credentials for a page",
	Long: `Decrypts the secret and prints its credentials, but only after the
page hostname is checked against the secret's registered domain. A
near-miss hostname is flagged as possible phishing and the fill is
blocked unless --force is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(cmd); err != nil {
			return err
		}

		rec, ok, err := cache.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no secret with id %q", args[0])
		}

		match, err := core.Fill(args[1], rec, stdoutFiller{}, fillForce)
		if errors.Is(err, vault.ErrDomainMismatch) {
			fmt.Printf("Blocked: %s\n", match.Warning)
			fmt.Println("Pass --force to fill anyway.")
			return err
		}
		if err != nil {
			return err
		}
		if !match.IsMatch {
			fmt.Printf("Warning: %s\n", match.Warning)
		}
		return nil
	},
}

func init() {
	fillCmd.Flags().BoolVar(&fillForce, "force", false, "Fill even when the domain does not match")
}
