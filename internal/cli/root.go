// Package cli implements graphmailctl, the administration command line for
// sender profiles and notification jobs.
package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/ignite/graphmail/internal/app"
	"github.com/ignite/graphmail/internal/config"
	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
	"github.com/ignite/graphmail/internal/service/profile"
)

// ProfileAdmin is the profile service as used by the CLI.
type ProfileAdmin interface {
	List(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, name string) (*profile.Description, error)
	Update(ctx context.Context, name string, changes map[string]string) (bool, error)
	Ensure(ctx context.Context, name string) (bool, error)
}

// Notifier runs and inspects notification jobs.
type Notifier interface {
	Enqueue(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error)
	SendNow(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error)
	Get(ctx context.Context, id string) (*domain.JobRecord, error)
}

// Services are injected by main or by tests. When unset, the root command
// connects using the configuration file and environment.
type Services struct {
	Profiles      ProfileAdmin
	Notifications Notifier
}

var (
	configPath string
	verbose    bool

	profileService      ProfileAdmin
	notificationService Notifier
	opened              *app.App
)

// SetServices injects service implementations for CLI commands.
func SetServices(s *Services) {
	if s == nil {
		profileService, notificationService = nil, nil
		return
	}
	profileService = s.Profiles
	notificationService = s.Notifications
}

var rootCmd = &cobra.Command{
	Use:           "graphmailctl",
	Short:         "Administer sender profiles and send notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if verbose {
			logger.SetLevel(logger.DEBUG)
		}
		if profileService != nil {
			return nil
		}
		cfg, err := config.LoadFromEnv(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		opened = a
		SetServices(&Services{Profiles: a.Profiles, Notifications: a.Notifications})
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if opened != nil {
			opened.Close()
			opened = nil
		}
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(profileCmd, sendCmd, jobCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
