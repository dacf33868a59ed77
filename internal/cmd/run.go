package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcbind/internal/errors"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the coordinator until interrupted",
	Long: `Start the simulated host, bind services from the registry directory as
descriptors appear, and serve metrics if enabled.

If the host cannot supply its context at start, the start is retried every
--retry-interval until it succeeds. On SIGINT or SIGTERM the host exit is
dispatched, which clears the published slot, and the process stops.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runRetryInterval time.Duration

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runRetryInterval, "retry-interval", 5*time.Second, "Interval between start retries")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runRetryInterval <= 0 {
		return fmt.Errorf("--retry-interval must be positive")
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	metricsErr := make(chan error, 1)
	if cfg.Metrics.Enabled {
		go func() { metricsErr <- s.collector.Serve(ctx, cfg.Metrics.Addr, logger) }()
	}

	if s.registry != nil {
		if err := s.registry.Start(); err != nil {
			return err
		}
	}

	if err := s.dispatcher.Start(ctx); err != nil {
		logger.Warn("host start incomplete, retrying", "error", err.Error(),
			"retryable", errors.IsRetryable(err), "interval", runRetryInterval.String())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render("svcbind running:"), describeState(s))

	ticker := time.NewTicker(runRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.dispatcher.Exit()
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render("svcbind stopped:"), describeState(s))
			return drainMetrics(cfg.Metrics.Enabled, metricsErr)

		case err := <-metricsErr:
			s.dispatcher.Exit()
			return err

		case <-ticker.C:
			if len(s.dispatcher.Failed()) == 0 {
				continue
			}
			if err := s.dispatcher.Retry(ctx); err != nil {
				logger.Warn("host start retry failed", "error", err.Error())
				continue
			}
			logger.Info("host start completed after retry")
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render("svcbind started:"), describeState(s))
		}
	}
}

func describeState(s *stack) string {
	snap := s.coord.Snapshot()
	published := snap.PublishedID
	if published == "" {
		published = "none"
	}
	return fmt.Sprintf("state=%s published=%s generation=%d", snap.State, published, snap.Generation)
}

// drainMetrics waits for the metrics server to finish shutting down.
func drainMetrics(enabled bool, errCh <-chan error) error {
	if !enabled {
		return nil
	}
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		return context.DeadlineExceeded
	}
}
