// =============================================================================
// Excel to EDI Generator - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   edi-generator version
//
// OUTPUT:
//   Excel to EDI Generator
//   Version:    1.2.0
//   Commit:     3f2c9e1
//   Go Version: go1.24.11
//   Standards:  x12, edifact
//   Built-in:   RENESAS/CLAIM, RENESAS/INVENTORY, ...
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/spf13/cobra"
)

// Version and Commit are stamped by the release build:
//
//	go build -ldflags "-X github.com/ginjaninja78/excel-to-edi/cmd.Version=$(git describe --tags) \
//	  -X github.com/ginjaninja78/excel-to-edi/cmd.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "dev"
	Commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version and the bundled partner profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		builtins, err := profile.Builtin()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(builtins))
		standards := make(map[string]bool)
		var names []string
		for _, p := range builtins {
			keys = append(keys, p.Key().String())
			if s := strings.ToLower(p.Standard); !standards[s] {
				standards[s] = true
				names = append(names, s)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Excel to EDI Generator")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Commit:     %s\n", Commit)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Standards:  %s\n", strings.Join(names, ", "))
		fmt.Fprintf(out, "Built-in:   %s\n", strings.Join(keys, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
