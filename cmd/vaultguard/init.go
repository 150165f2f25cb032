package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultguard/vaultguard/pkg/crypto"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local account",
	Long:  `Generates the account salt used for key derivation and stores it locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok, err := durable.Get(saltEntry); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("account already initialized at %s", baseDir)
		}

		salt := make([]byte, crypto.SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := durable.Put(saltEntry, salt); err != nil {
			return err
		}

		fmt.Printf("Initialized account in %s\n", baseDir)
		fmt.Println("Run `vaultguard login` to derive your first session key.")
		return nil
	},
}
