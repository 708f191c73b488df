package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/spf13/cobra"
)

// errFlowInvalid signals lint errors that were already printed.
var errFlowInvalid = errors.New("flow has errors")

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check a flow for structural problems",
	Long: `Loads the flow and reports dangling references, duplicate ids, unreachable blocks and
loops of Message blocks. Exits non-zero when any error is found; warnings alone pass.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.FlowPath
		if len(args) > 0 {
			path = args[0]
		}
		g, err := loadGraph(cmd, path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		findings := g.Lint()
		for _, f := range findings {
			fmt.Fprintln(out, f)
		}
		if domain.HasErrors(findings) {
			return errFlowInvalid
		}
		cli.PrintSystemMessage(out, "Flow '%s' is valid (%d blocks, %d warnings).", g.FlowID, len(g.Blocks), len(findings))
		return nil
	},
}

func loadGraph(cmd *cobra.Command, path string) (*domain.Graph, error) {
	if path == "" {
		return nil, errors.New("no flow given: pass a path or set --flow")
	}
	src, err := cli.OpenSource(path)
	if err != nil {
		return nil, err
	}
	return src.Load(cmd.Context())
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
