package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the notification worker and the poll auto-close sweep without
serving HTTP. Notifications produced here reach users through Service Bus
forwarding; socket delivery happens in the api processes.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := bootstrap(cfg, workerForwarding)
	if err != nil {
		return err
	}
	defer a.close()

	if a.forwarder == nil {
		log.Warn().Msg("Notification forwarding is disabled; this worker only runs the poll sweep")
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.forwarder != nil {
		g.Go(func() error {
			return a.notificationWorker().Run(ctx)
		})
	}

	g.Go(func() error {
		return a.runScheduler(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
