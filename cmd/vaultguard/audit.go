package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log's HMAC chain",
	Long: `Walks the audit log and checks every entry's HMAC against the chain.
Requires the master password, since the chain key is derived from the
session key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(cmd); err != nil {
			return err
		}
		count, err := auditor.Verify()
		if err != nil {
			return fmt.Errorf("audit chain verification failed: %w", err)
		}
		fmt.Printf("Verified %d entries.\n", count)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
}
