// Package cli holds the sentinel-updater commands
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sentinel/internal/core/version"

	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered
func New() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinel-updater",
		Short: "Collect CSS spec contributions from commits and the www-style list",
		Long: `sentinel-updater walks the csswg-drafts commit history and the www-style
mailing list archive for a date window, classifies each contribution by spec,
resolves authors against the contact directory and stores the new ones.`,
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(NewCmdRun())
	root.AddCommand(NewCmdMigrate())
	root.AddCommand(NewCmdContacts())
	return root
}

// signalContext cancels on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
