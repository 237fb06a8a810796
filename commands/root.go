package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	svc "github.com/krshsl/brandcast/services"
)

var (
	version = "dev"
	config  *svc.Config
)

// rootCmd serves the API when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "brandcast",
	Short: "Brandcast - interview-driven marketing strategy and social publishing backend",
	Long: `Brandcast interviews a business owner by voice, distills the conversation into a
marketing strategy with a three-month content calendar, drafts platform-specific posts,
and publishes or schedules them through a social media aggregator.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config = svc.LoadConfig()
		slog.SetDefault(svc.NewLogger(config.Log.Level, config.Log.Format))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute() error {
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version reported by --version
func SetVersionInfo(v, commit string) {
	version = v
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", v, commit)
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, tokenCmd)
}
