package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/graphmail/internal/domain"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage sender profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sender profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := profileService.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile with its secret masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := profileService.Describe(cmd.Context(), profileArg(args))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), d)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name> key=value...",
	Short: "Change profile settings",
	Long: `Change one or more settings of a profile, creating it if needed.

Recognised keys: ` + strings.Join(domain.ProfileKeys(), ", ") + `

Example:
  graphmailctl profile set Office365 tenantId=contoso.onmicrosoft.com batchSize=50`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		changed, err := profileService.Update(cmd.Context(), args[0], changes)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.OutOrStdout(), "no changes")
			return nil
		}
		keys := make([]string, 0, len(changes))
		for k := range changes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %s\n", args[0], strings.Join(keys, ", "))
		return nil
	},
}

var profileBootstrapCmd = &cobra.Command{
	Use:   "bootstrap [name]",
	Short: "Create a profile with default settings if it does not exist",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := profileArg(args)
		created, err := profileService.Ensure(cmd.Context(), name)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", name)
		}
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileSetCmd, profileBootstrapCmd)
}

func profileArg(args []string) string {
	if len(args) == 0 {
		return domain.DefaultProfileName
	}
	return args[0]
}

func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		out[k] = v
	}
	return out, nil
}
