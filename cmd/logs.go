// =============================================================================
// Excel to EDI Generator - Logs Command
// =============================================================================
//
// COMMAND USAGE:
//   edi-generator logs --user buyer@example.com [--limit 20]
//
// Shows the most recent audit entries of one identity, oldest first.
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ginjaninja78/excel-to-edi/internal/audit"
	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/spf13/cobra"
)

var (
	logsUser  string
	logsLimit int
	logsJSON  bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent audit log entries for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}

		user := logsUser
		if user == "" {
			user = os.Getenv("USER")
		}
		limit := logsLimit
		if limit <= 0 {
			limit = cfg.AuditReadLimit
		}

		entries, err := audit.New(cfg.AuditDir).Recent(user, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if logsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "No audit entries for %s.\n", user)
			return nil
		}
		for _, e := range entries {
			details, _ := json.Marshal(e.Details)
			fmt.Fprintf(out, "%s  %-18s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, details)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().StringVarP(&logsUser, "user", "u", "", "Identity to show (default: $USER)")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Number of entries (default: audit_read_limit)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print entries as JSON")
	rootCmd.AddCommand(logsCmd)
}
