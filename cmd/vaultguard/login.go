package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Derive a session key from the master password",
	Long: `Derives the session key from the master password and the stored
account salt. The key lives only for this invocation. Derivation
always succeeds for a well-formed password; a wrong one surfaces as
undecryptable records when reading secrets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(cmd); err != nil {
			return err
		}
		fmt.Println("Session key derived and cached for this invocation.")
		return nil
	},
}
