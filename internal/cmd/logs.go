package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcbind/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View coordinator logs",
	Long: `View and filter the svcbind log file.

Reads svcbind.log from logging.dir unless --file is given.

Examples:
  # Show last 50 lines
  svcbind logs

  # Show all warnings and errors
  svcbind logs --level warn -n 0

  # Follow logs in real-time
  svcbind logs -f

  # Only the binding component, last hour
  svcbind logs --component binding --since 1h

  # Search for specific patterns
  svcbind logs --grep "unbind|start failed"`,
	RunE: runLogs,
}

var (
	logsFile      string
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsComponent string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsFile, "file", "", "Log file (default: <logging.dir>/svcbind.log)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component (binding, registry, router, host)")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	ServiceID string         `json:"service_id,omitempty"`
	Extra     map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Then unmarshal all fields to capture extras
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	// Remove known fields, keep the rest as extra
	delete(all, "time")
	delete(all, "level")
	delete(all, "msg")
	delete(all, "component")
	delete(all, "service_id")

	if len(all) > 0 {
		e.Extra = all
	}

	return nil
}

// logFilter holds the criteria an entry must meet to be shown
type logFilter struct {
	minLevel  int
	since     time.Time
	grep      *regexp.Regexp
	component string
}

// levelStyle returns the style for a log level
func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return mutedStyle
	case logging.LevelInfo:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	case logging.LevelWarn:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case logging.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	default:
		return lipgloss.NewStyle()
	}
}

var fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

// levelPriority returns the priority of a log level for filtering
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry *logEntry) string {
	var sb strings.Builder

	sb.WriteString(mutedStyle.Render("[" + entry.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(levelStyle(entry.Level).Render("[" + strings.ToUpper(entry.Level) + "]"))
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	if entry.Component != "" {
		sb.WriteString(" ")
		sb.WriteString(fieldStyle.Render("component=" + entry.Component))
	}
	if entry.ServiceID != "" {
		sb.WriteString(" ")
		sb.WriteString(fieldStyle.Render("service_id=" + entry.ServiceID))
	}

	// Extra fields in a stable order
	keys := make([]string, 0, len(entry.Extra))
	for key := range entry.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sb.WriteString(" ")
		sb.WriteString(fieldStyle.Render(key + "="))
		sb.WriteString(fmt.Sprintf("%v", entry.Extra[key]))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	logPath := logsFile
	if logPath == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Logging.Dir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No log directory configured (logging.dir); logs go to stderr.")
			return nil
		}
		logPath = filepath.Join(cfg.Logging.Dir, logging.FileName)
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No logs found at %s\n", logPath)
		return nil
	}

	filter, err := buildLogFilter(logsLevel, logsSince, logsGrep, logsComponent)
	if err != nil {
		return err
	}

	if logsFollow {
		return followLogs(cmd, logPath, filter)
	}
	return displayLogs(cmd.OutOrStdout(), logPath, logsTail, filter)
}

func buildLogFilter(level, since, grep, component string) (logFilter, error) {
	filter := logFilter{minLevel: -1, component: component}
	if level != "" {
		filter.minLevel = levelPriority(logging.ParseLevel(level))
	}

	if since != "" {
		duration, err := time.ParseDuration(since)
		if err != nil {
			return logFilter{}, fmt.Errorf("invalid duration format: %w", err)
		}
		filter.since = time.Now().Add(-duration)
	}

	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return logFilter{}, fmt.Errorf("invalid grep pattern: %w", err)
		}
		filter.grep = re
	}
	return filter, nil
}

// displayLogs reads the log file and writes filtered entries to out
func displayLogs(out io.Writer, logPath string, tail int, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var entry logEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// If we can't parse as JSON, display raw line
			entries = append(entries, line)
			continue
		}

		if !filter.passes(&entry) {
			continue
		}

		entries = append(entries, formatLogEntry(&entry))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	// Apply tail limit
	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}

	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}

	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(cmd *cobra.Command, logPath string, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Seek to end of file
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Following logs... (Ctrl+C to stop)\n\n")

	ctx := cmd.Context()
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// No new data, wait briefly and try again
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			return fmt.Errorf("error reading log file: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry logEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Fprintln(out, line)
			continue
		}

		if !filter.passes(&entry) {
			continue
		}

		fmt.Fprintln(out, formatLogEntry(&entry))
	}
}

// passes checks if a log entry meets all filter criteria
func (f logFilter) passes(entry *logEntry) bool {
	// Level filter
	if f.minLevel >= 0 && levelPriority(entry.Level) < f.minLevel {
		return false
	}

	// Time filter
	if !f.since.IsZero() && entry.Time.Before(f.since) {
		return false
	}

	if f.component != "" && entry.Component != f.component {
		return false
	}

	// Grep filter - search in message and extra fields
	if f.grep != nil {
		searchText := entry.Msg + " " + entry.ServiceID
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !f.grep.MatchString(searchText) {
			return false
		}
	}

	return true
}
