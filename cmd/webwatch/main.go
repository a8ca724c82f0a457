package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string // Only config path for serve/check commands
}

// MonitorFlags holds flags for monitor management commands
type MonitorFlags struct {
	URL        string
	Selector   string
	OwnerEmail string
	OwnerKey   string
	ID         int64
	// API connection
	APIUrl     string
	APITimeout time.Duration
}

// TriggerFlags holds flags for the trigger command
type TriggerFlags struct {
	Secret     string
	APIUrl     string
	APITimeout time.Duration
}

// buildRoot creates the root command with all subcommands attached
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	addFlags := &MonitorFlags{}
	listFlags := &MonitorFlags{}
	removeFlags := &MonitorFlags{}
	triggerFlags := &TriggerFlags{}

	webwatchCommand := command{}

	root := createRootCommand(globalFlags)

	root.AddCommand(
		createServeCommand(globalFlags),
		createCheckCommand(globalFlags),
		createAddCommand(webwatchCommand, addFlags),
		createListCommand(webwatchCommand, listFlags),
		createRemoveCommand(webwatchCommand, removeFlags),
		createTriggerCommand(webwatchCommand, triggerFlags),
	)

	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "webwatch",
		Short: "Periodic webpage change monitor",
		Long: `Webwatch periodically fetches registered webpages, extracts a fragment
with a CSS selector, and notifies owners when the extracted content changes.

Examples:
  webwatch serve --config=webwatch.toml
  webwatch add --url=https://example.com --selector="#price" --email=me@example.com --key=mykey
  webwatch list --key=mykey
  webwatch trigger --secret=s3cret       # Run one batch now via the daemon`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")

	return root
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the webwatch daemon",
		Long: `Start the webwatch daemon: the HTTP API, the periodic scheduler and the
check worker. All configuration is loaded from a TOML file plus WEBWATCH_*
environment variables.

Examples:
  webwatch serve                     # Environment-only configuration
  webwatch serve webwatch.toml       # Start with specific config file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServeCommand(configPath)
		},
	}

	return cmd
}

// createCheckCommand creates the check subcommand
func createCheckCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [config.toml]",
		Short: "Run one batch of checks and exit",
		Long: `Run a single batch pass over all registered monitors without starting
the daemon. Useful from external schedulers such as system cron.

Examples:
  webwatch check webwatch.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runCheckCommand(configPath)
		},
	}

	return cmd
}

// createAddCommand creates the add subcommand
func createAddCommand(webwatchCommand command, flags *MonitorFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new monitor",
		Long: `Register a webpage fragment to watch. The owner key scopes later list
and remove operations to your own monitors.

Examples:
  webwatch add --url=https://example.com/item --selector="#price" --email=me@example.com --key=mykey`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Add(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.URL, "url", "", "page URL to watch (required)")
	cmd.Flags().StringVar(&flags.Selector, "selector", "", "CSS selector to extract (required)")
	cmd.Flags().StringVar(&flags.OwnerEmail, "email", "", "owner email for notifications (required)")
	cmd.Flags().StringVar(&flags.OwnerKey, "key", "", "owner key (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)

	for _, name := range []string{"url", "selector", "email", "key"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}

// createListCommand creates the list subcommand
func createListCommand(webwatchCommand command, flags *MonitorFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monitors for an owner key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.List(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.OwnerKey, "key", "", "owner key (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)

	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}

	return cmd
}

// createRemoveCommand creates the remove subcommand
func createRemoveCommand(webwatchCommand command, flags *MonitorFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a monitor you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Remove(*flags)
		},
	}

	cmd.Flags().Int64Var(&flags.ID, "id", 0, "monitor id (required)")
	cmd.Flags().StringVar(&flags.OwnerKey, "key", "", "owner key (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)

	for _, name := range []string{"id", "key"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}

// createTriggerCommand creates the trigger subcommand
func createTriggerCommand(webwatchCommand command, flags *TriggerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger one batch run on the daemon",
		Long: `Ask the daemon to run one batch of checks immediately. The secret must
match the daemon's worker_secret. A batch already in flight is reported as an
error without queuing a second one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Trigger(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Secret, "secret", "", "worker secret (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)

	if err := cmd.MarkFlagRequired("secret"); err != nil {
		panic(err)
	}

	return cmd
}

// addAPIFlags attaches the shared remote daemon connection flags
func addAPIFlags(cmd *cobra.Command, apiURL *string, timeout *time.Duration) {
	cmd.Flags().StringVar(apiURL, "api-url", "", "daemon URL (e.g. http://host:8080)")
	cmd.Flags().DurationVar(timeout, "api-timeout", 10*time.Second, "request timeout")
}
