package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/connectsphere/internal/api"
	"example.com/connectsphere/internal/realtime"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the HTTP API and websocket gateway. The same process mirrors
channel events from other instances onto its sockets, runs the notification
worker for socket delivery and the poll auto-close scheduler. Service Bus
forwarding only runs in the worker command.`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := bootstrap(cfg, apiForwarding)
	if err != nil {
		return err
	}
	defer a.close()

	server := api.NewServer(cfg.Server, a.services, a.hub, a.tracer, a.metrics)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	g.Go(func() error {
		return realtime.NewBridge(a.store, a.hub, a.dispatcher.Origin()).Run(ctx)
	})

	if cfg.Notifications.Enabled {
		g.Go(func() error {
			return a.notificationWorker().Run(ctx)
		})
	}

	g.Go(func() error {
		return a.runScheduler(ctx)
	})

	log.Info().Str("instance", cfg.InstanceID).Msg("API server running")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("API server error")
		return err
	}

	log.Info().Msg("API server shut down gracefully")
	return nil
}
