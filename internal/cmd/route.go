package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <host>...",
	Short: "Show where connections to the given hosts would go",
	Long: `Bind the most recent descriptor from the registry directory, start the
simulated host, and print the routing decision for each host.

Hosts matching router.local_hosts are served by the published local service.
When nothing is published they go remote, or fail when router.fallback is
"fail".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

var routeNoStart bool

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().BoolVar(&routeNoStart, "no-start", false, "Route without starting the host")
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	s, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	if s.registry != nil {
		if err := s.registry.Scan(); err != nil {
			fmt.Fprintln(out, mutedStyle.Render("registry: "+err.Error()))
		}
	}
	if !routeNoStart {
		if err := s.dispatcher.Start(cmd.Context()); err != nil {
			fmt.Fprintln(out, failStyle.Render("host start failed: ")+err.Error())
		}
	}

	snap := s.coord.Snapshot()
	published := snap.PublishedID
	if published == "" {
		published = "none"
	}
	fmt.Fprintf(out, "%s %s, published: %s\n", titleStyle.Render("State:"), snap.State, published)

	rows := make([][]string, 0, len(args))
	failed := make(map[int]bool)
	for i, h := range args {
		d, err := s.router.Route(h)
		if err != nil {
			failed[i] = true
			rows = append(rows, []string{h, "failed", "-", err.Error()})
			continue
		}
		service, note := "-", ""
		if d.Service != nil {
			service = d.Service.ID()
			if d.Endpoint != "" {
				service += " (" + d.Endpoint + ")"
			}
		}
		if d.Fallback {
			note = "no local service"
		}
		rows = append(rows, []string{h, string(d.Target), service, note})
	}

	fmt.Fprintln(out, renderTable([]string{"HOST", "TARGET", "SERVICE", "NOTE"}, rows,
		func(row, col int) *lipgloss.Style {
			if col == 1 && failed[row] {
				return &failStyle
			}
			return nil
		}))

	if len(failed) > 0 {
		return fmt.Errorf("%d host(s) could not be routed", len(failed))
	}
	return nil
}
