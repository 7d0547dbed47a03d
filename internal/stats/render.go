package stats

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Render prints a report as operator-facing tables.
func Render(out io.Writer, rep *Report) {
	fmt.Fprintf(out, "\n=== Signal statistics ===\n")
	fmt.Fprintf(out, "Resolved signals: %d   stop-loss exits: %d\n\n", rep.Total, rep.StopLossCount)

	if rep.Total == 0 {
		fmt.Fprintln(out, "No resolved signals yet.")
		return
	}

	table := tablewriter.NewWriter(out)
	table.Header("Horizon", "Samples", "Wins", "Win rate", "Avg", "Min", "Max")
	for _, h := range rep.Horizons {
		table.Append(
			fmt.Sprintf("%dd", h.HorizonDays),
			fmt.Sprintf("%d", h.Samples),
			fmt.Sprintf("%d", h.Wins),
			fmt.Sprintf("%.1f%%", h.WinRate*100),
			fmt.Sprintf("%+.2f%%", h.AvgReturn*100),
			fmt.Sprintf("%+.2f%%", h.MinReturn*100),
			fmt.Sprintf("%+.2f%%", h.MaxReturn*100),
		)
	}
	table.Render()

	if len(rep.Groups) > 0 {
		fmt.Fprintf(out, "\nPer asset (primary horizon):\n")
		table = tablewriter.NewWriter(out)
		table.Header("Asset", "Type", "Count", "Wins", "Stops", "Win rate", "Avg")
		for _, g := range rep.Groups {
			table.Append(
				g.Asset,
				string(g.Type),
				fmt.Sprintf("%d", g.Count),
				fmt.Sprintf("%d", g.Wins),
				fmt.Sprintf("%d", g.StopLoss),
				fmt.Sprintf("%.1f%%", g.WinRate*100),
				fmt.Sprintf("%+.2f%%", g.AvgReturn*100),
			)
		}
		table.Render()
	}

	fmt.Fprintf(out, "\nStrategy complexity: %s\n", rep.Complexity)
	for _, w := range rep.Warnings {
		fmt.Fprintf(out, "WARNING: %s\n", w)
	}
	fmt.Fprintln(out)
}
