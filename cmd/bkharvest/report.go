package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/usecase"
)

// renderReport prints one row per stage followed by the written files.
func renderReport(w io.Writer, report *usecase.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("%s run, %s", report.Mode, report.StartedAt.Format(time.DateTime))
	t.AppendHeader(table.Row{"Stage", "Units", "Fetched", "Skipped", "Rows", "Duration", "File"})

	for _, stage := range report.Stages {
		t.AppendRow(table.Row{
			stage.Name,
			stage.Units,
			stage.Fetched,
			formatSkipped(stage.Skipped),
			stage.Rows,
			stage.Duration.Round(time.Millisecond),
			stage.Path,
		})
	}

	uploaded := "no"
	if report.Uploaded {
		uploaded = "yes"
	}
	t.AppendFooter(table.Row{"uploaded", uploaded})
	t.Render()
}

// formatSkipped renders skip counts as "status=2 empty=1" in reason order.
func formatSkipped(skipped map[domain.AbsenceReason]int) string {
	if len(skipped) == 0 {
		return "-"
	}
	reasons := make([]domain.AbsenceReason, 0, len(skipped))
	for r := range skipped {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", r, skipped[r]))
	}
	return strings.Join(parts, " ")
}
