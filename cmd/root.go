package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/config"
)

// rootCmd represents the base command for the agenda application
var rootCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Conversational calendar scheduling assistant",
	Long: `agenda is a calendar assistant you talk to in natural language. It checks
availability, finds free slots and creates, updates or deletes events, and keeps
a local activity log that stands in for the calendar when no backend is reachable.

It can run as:
  - An interactive chat in the terminal (default)
  - An HTTP chat API and MCP server (serve)`,
	SilenceUsage: true,
}

var (
	// version will be set by main
	version = "dev"

	configFile string
	settings   = config.New()
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agenda version %s\n" .Version}}`)

	// Without a subcommand, start a chat
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default: ./agenda.yaml or $XDG_CONFIG_HOME/agenda/agenda.yaml)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error. Can also use AGENDA_LOG_LEVEL env var.")
	flags.String("log-format", "text", "Log format: text or json. Can also use AGENDA_LOG_FORMAT env var.")
	flags.String("eventlog-dir", "./event_logs", "Directory of the activity log segments. Can also use AGENDA_EVENTLOG_DIR env var.")
	flags.String("calendar-backend", config.BackendAuto, "Calendar backend: auto, google, memory or none. Can also use AGENDA_CALENDAR_BACKEND env var.")
	for key, flag := range map[string]string{
		"log.level":        "log-level",
		"log.format":       "log-format",
		"eventlog.dir":     "eventlog-dir",
		"calendar.backend": "calendar-backend",
	} {
		if err := settings.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agenda version %s\n", version)
		},
	}
}

// loadConfig reads the configuration after flags have been parsed.
func loadConfig() (*config.Config, error) {
	return config.Load(settings, configFile)
}
