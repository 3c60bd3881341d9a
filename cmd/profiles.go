// =============================================================================
// Excel to EDI Generator - Profiles Command
// =============================================================================
//
// COMMAND USAGE:
//   edi-generator profiles list
//   edi-generator profiles validate [FILE...]
//
// 'list' shows every registered profile. 'validate' checks the given
// profile files, or the profiles directory when no file is given, without
// generating anything.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/validation"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect and validate partner encoding profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered partner profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PARTNER\tTYPE\tSTANDARD\tSOURCE\tDESCRIPTION")
		for _, p := range reg.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.PartnerID, p.DocumentType, p.Standard, p.Source, p.Description)
		}
		return w.Flush()
	},
}

var profilesValidateCmd = &cobra.Command{
	Use:   "validate [FILE...]",
	Short: "Validate profile files",
	RunE: func(cmd *cobra.Command, args []string) error {
		var profiles []*profile.EncodingProfile
		if len(args) == 0 {
			cfg, err := config.LoadMainConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load main config: %w", err)
			}
			profiles, err = config.LoadProfiles(cfg.ProfilesDir)
			if err != nil {
				return err
			}
		}
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			p, err := profile.Decode(data, path)
			if err != nil {
				return err
			}
			profiles = append(profiles, p)
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, p := range profiles {
			findings := validation.ValidateProfile(p)
			status := "OK"
			if validation.HasErrors(findings) {
				status = "INVALID"
				failed++
			}
			fmt.Fprintf(out, "%-8s %s (%s)\n", status, p.Key(), p.Source)
			for _, f := range findings {
				fmt.Fprintf(out, "         %s\n", f.Error())
			}
		}

		if len(profiles) == 0 {
			fmt.Fprintln(out, "No profiles to validate.")
		}
		if failed > 0 {
			return fmt.Errorf("%d invalid profile(s)", failed)
		}
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesValidateCmd)
	rootCmd.AddCommand(profilesCmd)
}
