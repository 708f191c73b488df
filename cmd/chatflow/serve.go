package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/cli"
	chathttp "github.com/aretw0/chatflow/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Serves the websocket chat endpoint (/chatbot), the flow configuration API (/api/config),
health and Prometheus metrics. The flow comes from --flow, from the snapshot store, or from a
later POST /api/config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		hub := chathttp.NewHub(chathttp.WithHubLogger(logger))
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		app, err := cli.Build(sigCtx, cfg, hub, cli.WithLogger(logger), cli.WithRegisterer(reg))
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn("Failed to release resources", "err", err)
			}
		}()

		if cfg.FlowPath == "" {
			if restored, err := app.Engine.Restore(sigCtx); err != nil {
				logger.Warn("Flow snapshot restore failed", "err", err)
			} else if restored {
				logger.Info("Flow restored from snapshot")
			}
		}

		handler := chathttp.NewHandler(app.Engine.Flows(), app.Engine, hub,
			chathttp.WithLogger(logger),
			chathttp.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
			chathttp.WithVersion("chatflow", strings.TrimSpace(chatflow.Version)),
		)
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(sigCtx)
		if cfg.FlowPath != "" {
			src, err := cli.LoadFlow(ctx, app.Engine, cfg.FlowPath)
			if err != nil {
				return fmt.Errorf("load flow: %w", err)
			}
			if current, ok := app.Engine.Current(); ok {
				cli.PrintSystemMessage(cmd.OutOrStdout(), "Flow '%s' installed from %s.", current.FlowID, cfg.FlowPath)
			}
			if cfg.Watch {
				g.Go(func() error {
					return cli.Watch(ctx, app.Engine, src, logger)
				})
			}
		}

		g.Go(func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting chatflow server on %s\n", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			if sig := sigCtx.Signal(); sig != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sig)
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			hub.Shutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Graceful shutdown did not complete in %v: %v\n", shutdownTimeout, err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Chatflow server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Address to listen on")
}
