package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/metrics"
	"github.com/Iron-Ham/svcbind/internal/simulate"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Hammer a coordinator with concurrent transitions",
	Long: `Run random bind, unbind, start and exit operations from many goroutines
against one coordinator while readers check every published service.

The command fails if a reader ever observes a published service without
host context, or if the final slot breaks the publish rule.`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

var (
	stressWorkers    int
	stressIterations int
	stressServices   int
	stressSeed       uint64
)

func init() {
	rootCmd.AddCommand(stressCmd)

	defaults := simulate.DefaultStressConfig()
	stressCmd.Flags().IntVarP(&stressWorkers, "workers", "w", defaults.Workers, "Number of concurrent workers")
	stressCmd.Flags().IntVarP(&stressIterations, "iterations", "n", defaults.Iterations, "Operations per worker")
	stressCmd.Flags().IntVar(&stressServices, "services", defaults.Services, "Number of distinct services")
	stressCmd.Flags().Uint64Var(&stressSeed, "seed", defaults.Seed, "Random seed")
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	bus := event.NewBus(logger)
	collector := metrics.NewCollector()
	collector.Subscribe(bus)

	res, err := simulate.Stress(cmd.Context(), simulate.StressConfig{
		Workers:    stressWorkers,
		Iterations: stressIterations,
		Services:   stressServices,
		Seed:       stressSeed,
	}, simulate.WithLogger(logger), simulate.WithBus(bus))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Stress run"))
	fmt.Fprintln(out, renderTable([]string{"METRIC", "VALUE"}, [][]string{
		{"operations", strconv.FormatInt(res.Ops, 10)},
		{"reads", strconv.FormatInt(res.Reads, 10)},
		{"violations", strconv.FormatInt(res.Violations, 10)},
		{"final state", res.Final.State.String()},
		{"final generation", strconv.FormatUint(res.Final.Generation, 10)},
		{"duration", res.Duration.Round(time.Microsecond).String()},
		{"consistent", statusLabel(res.Consistent)},
	}, nil))
	fmt.Fprintln(out, renderTransitions(collector))

	if res.Violations > 0 || !res.Consistent {
		return fmt.Errorf("stress run broke the publish rule (violations=%d, consistent=%v)",
			res.Violations, res.Consistent)
	}
	return nil
}
