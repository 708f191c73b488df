package main

import (
	"context"
	"os"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/internal/presentation/tui"
	"github.com/aretw0/chatflow/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [flow]",
	Short: "Chat with a flow in the terminal",
	Long: `Runs a single local session on Stdin/Stdout. Type /restart to start over and /quit to leave.

With --json the session speaks JSON Lines, one {"type","content"} object per bot message, which
is convenient for scripting and integration tests.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			cfg.FlowPath = args[0]
		}
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		width, _ := cmd.Flags().GetInt("width")

		logger, err := newLogger()
		if err != nil {
			return err
		}

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			handler = runner.NewTextHandler(os.Stdin, os.Stdout,
				runner.WithTextHandlerRenderer(tui.NewRenderer(width)),
			)
		}
		r := runner.New(
			runner.WithLogger(logger),
			runner.WithInputHandler(handler),
			runner.WithSessionID(sessionID),
		)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		app, err := cli.Build(ctx, cfg, r, cli.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn("Failed to release resources", "err", err)
			}
		}()

		if cfg.FlowPath != "" {
			src, err := cli.LoadFlow(ctx, app.Engine, cfg.FlowPath)
			if err != nil {
				return err
			}
			if cfg.Watch {
				go func() {
					if err := cli.Watch(ctx, app.Engine, src, logger); err != nil {
						logger.Error("Watcher stopped", "err", err)
					}
				}()
			}
		} else if _, err := app.Engine.Restore(ctx); err != nil {
			logger.Warn("Flow snapshot restore failed", "err", err)
		}

		if !jsonMode {
			flowID := ""
			if g, ok := app.Engine.Current(); ok {
				flowID = g.FlowID
			}
			tui.PrintBanner(cmd.OutOrStdout(), flowID)
		}
		return r.Run(ctx, app.Engine)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", runner.DefaultSessionID, "Session id of the local conversation")
	chatCmd.Flags().Bool("json", false, "Speak JSON Lines on Stdin/Stdout")
	chatCmd.Flags().Int("width", 80, "Word wrap width of rendered bot messages")
}
