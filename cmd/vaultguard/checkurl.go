package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultguard/vaultguard/pkg/phishing"
)

var checkURLCmd = &cobra.Command{
	Use:   "check-url <page-url> <saved-url>",
	Short: "Check a page URL against a saved site",
	Long: `Compares the hostnames of a page and a saved site. Hostnames within a
small edit distance are flagged as possible phishing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := phishing.Match(args[0], args[1])
		if res.IsMatch {
			fmt.Println("Match.")
			return nil
		}
		fmt.Println(res.Warning)
		return nil
	},
}
