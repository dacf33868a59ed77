package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/metrics"
	"github.com/Iron-Ham/svcbind/internal/simulate"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <script.yaml>",
	Short: "Replay a lifecycle script against a fresh coordinator",
	Long: `Replay a YAML lifecycle script against a fresh coordinator and a simulated
host, printing the state and published slot after every step.

Steps are either plain strings or mappings with expectations:

  name: replacement
  host:
    repository: repo-1
    metastore: meta-1
  steps:
    - bind orders
    - do: start
      expect: {state: active, published: orders, repository: repo-1}
    - host_down
    - do: exit
      expect: {published: none}

Actions: start, exit, retry, bind <id>, unbind [id], host_down, host_up,
context <repository> <metastore>.

The command fails if any expectation does not hold.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

var simulateShowMetrics bool

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVar(&simulateShowMetrics, "metrics", false, "Print transition counters after the run")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	script, err := simulate.LoadScript(args[0])
	if err != nil {
		return err
	}

	bus := event.NewBus(logger)
	collector := metrics.NewCollector()
	collector.Subscribe(bus)

	report, err := simulate.Run(cmd.Context(), script,
		simulate.WithLogger(logger),
		simulate.WithBus(bus))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Script: "+report.Name))
	fmt.Fprintln(out, renderReport(report))

	for _, s := range report.Steps {
		for _, f := range s.Failures {
			fmt.Fprintf(out, "%s step %d (%s): %s\n", failStyle.Render("✗"), s.Index+1, s.Step, f)
		}
	}

	if simulateShowMetrics {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTransitions(collector))
	}

	if !report.Passed() {
		return fmt.Errorf("%d expectation(s) failed", report.FailureCount())
	}
	fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("All %d steps passed", len(report.Steps))))
	return nil
}

func renderReport(report *simulate.Report) string {
	headers := []string{"#", "STEP", "STATE", "PUBLISHED", "GEN", "REPOSITORY", "ERROR", "RESULT"}
	rows := make([][]string, 0, len(report.Steps))
	for _, s := range report.Steps {
		published := s.PublishedID
		if published == "" {
			published = "-"
		}
		repo := s.Repository
		if repo == "" {
			repo = "-"
		}
		errText := "-"
		if s.Err != nil {
			errText = s.Err.Error()
		}
		result := mutedStyle.Render("-")
		if s.Step.Expect != nil {
			result = statusLabel(s.Passed())
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Index + 1),
			s.Step.String(),
			s.State.String(),
			published,
			strconv.FormatUint(s.Generation, 10),
			repo,
			errText,
			result,
		})
	}

	return renderTable(headers, rows, func(row, col int) *lipgloss.Style {
		if col == 6 && report.Steps[row].Err != nil {
			return &failStyle
		}
		return nil
	})
}
