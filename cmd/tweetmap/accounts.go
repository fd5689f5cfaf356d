package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tweetmap/pkg/accounts"
	"tweetmap/pkg/config"
)

// accountsCmd groups account pool inspection commands
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect the upstream account pool",
}

// accountsListCmd prints the configured accounts with secrets masked
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured upstream accounts",
	Long: `Lists the accounts loaded from the accounts file with credentials
masked and shows whether a persisted session exists for each.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		accts, err := accounts.LoadAccounts(cfg.Accounts.File)
		if err != nil {
			return fmt.Errorf("failed to load accounts: %w", err)
		}

		if sessions, err := accounts.NewSessionStore(cfg.Accounts.SessionFile); err == nil {
			sessions.Restore(accts)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tEMAIL\tPASSWORD\tSESSION")
		for _, acct := range accts {
			masked := acct.Masked()
			session := "-"
			if acct.SessionToken != "" {
				session = "stored"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", masked.Username, masked.Email, masked.Password, session)
		}
		return w.Flush()
	},
}

func init() {
	accountsCmd.AddCommand(accountsListCmd)
	rootCmd.AddCommand(accountsCmd)
}
