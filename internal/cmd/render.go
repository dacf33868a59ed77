package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Iron-Ham/svcbind/internal/metrics"
)

// renderTransitions renders the svcbind_* series gathered from c.
func renderTransitions(c *metrics.Collector) string {
	families, err := c.Registry().Gather()
	if err != nil {
		return mutedStyle.Render("metrics unavailable: " + err.Error())
	}

	var rows [][]string
	for _, f := range families {
		name := f.GetName()
		if !strings.HasPrefix(name, "svcbind_") {
			continue
		}
		for _, m := range f.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
			rows = append(rows, []string{
				strings.TrimPrefix(name, "svcbind_"),
				strings.Join(labels, ","),
				strconv.FormatFloat(value, 'f', -1, 64),
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] < rows[j][0]
		}
		return rows[i][1] < rows[j][1]
	})

	return renderTable([]string{"METRIC", "LABELS", "VALUE"}, rows, nil)
}
