package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vaultguard/vaultguard/pkg/vault"
)

var copyUsername bool

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a secret to the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(cmd); err != nil {
			return err
		}

		name, err := readLine("Name: ")
		if err != nil {
			return err
		}
		username, err := readLine("Username: ")
		if err != nil {
			return err
		}
		password, err := readSecret("Password: ")
		if err != nil {
			return err
		}
		url, err := readLine("URL: ")
		if err != nil {
			return err
		}

		rec, err := core.AddSecret(vault.DecryptedSecret{
			ID:       uuid.NewString(),
			Name:     name,
			Username: username,
			Password: string(password),
			URL:      url,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %q (%s)\n", rec.Label, rec.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached secrets",
	Long: `Lists the cached secrets. Records that fail authentication render as
undecryptable placeholders instead of aborting the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(cmd); err != nil {
			return err
		}

		records, err := core.ListSecrets(cmd.Context())
		if err != nil {
			return err
		}
		secrets, err := core.DecryptSecrets(records)
		if err != nil {
			return err
		}
		if len(secrets) == 0 {
			fmt.Println("No secrets cached.")
			return nil
		}

		fmt.Printf("%-38s %-20s %-20s %s\n", "ID", "NAME", "USERNAME", "URL")
		for _, s := range secrets {
			fmt.Printf("%-38s %-20s %-20s %s\n", s.ID, s.Name, s.Username, s.URL)
		}
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <id>",
	Short: "Copy a secret's password to the clipboard",
	Long: `Decrypts the secret and places its password on the system clipboard.
The clipboard clears itself after the configured interval unless
something else was copied in the meantime; the command waits for the
clear before exiting.`,
	Args: cobra.ExactArgs(1),
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

		copyFn := core.CopyPassword
		what := "Password"
		if copyUsername {
			copyFn = core.CopyUsername
			what = "Username"
		}
		if err := copyFn(rec); err != nil {
			return err
		}

		ttl := time.Duration(cfg.ClipboardTTLSeconds) * time.Second
		fmt.Printf("%s copied. Clearing clipboard in %v...\n", what, ttl)
		time.Sleep(ttl + time.Second)
		return nil
	},
}

func init() {
	copyCmd.Flags().BoolVar(&copyUsername, "username", false, "Copy the username instead of the password")
}
