package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Destroy all local security data",
	Long: `Removes the PIN record, failure counters, activity state, and the
local secret cache. The account salt survives; secrets come back on
the next sync, everything else requires a fresh login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeForce {
			answer, err := readLine("This destroys all local security data. Type 'yes' to continue: ")
			if err != nil {
				return err
			}
			if answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}
		if err := core.ClearSecurityData(); err != nil {
			return err
		}
		fmt.Println("Local security data destroyed.")
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip the confirmation prompt")
}
