package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/internal/config"
	"github.com/spf13/cobra"
)

// cfg starts from the CHATFLOW_* environment; flags override it. envErr is reported once a
// command runs, so --help works with a broken environment.
var cfg, envErr = config.Load(nil)

var rootCmd = &cobra.Command{
	Use:   "chatflow",
	Short: "Chatflow runs scripted chatbot conversations",
	Long: `Chatflow executes a flow of Message and IntentDetection blocks for every connected user.
Flows are JSON/YAML documents or directories of Markdown blocks, and can be replaced at runtime.

Every flag can also be set through a CHATFLOW_* environment variable (e.g. CHATFLOW_REDIS_ADDR).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return envErr
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cfg.BindFlags(rootCmd.PersistentFlags())
}

func newLogger() (*slog.Logger, error) {
	return cli.NewLogger(cfg, os.Stderr)
}
