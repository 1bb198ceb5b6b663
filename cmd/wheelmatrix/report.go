package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	wheelmatrix "github.com/contriboss/wheelmatrix-go"
)

// newTable renders the inner grid only, no outer frame.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tbl := tablewriter.NewTable(
		w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders:  tw.BorderNone,
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.On, BetweenRows: tw.On}},
		})),
	)
	tbl.Header(header)
	return tbl
}

func renderOutcomes(w io.Writer, outcomes []wheelmatrix.BuildOutcome) {
	tbl := newTable(w, "Interpreter", "Target", "Status", "Exit")
	data := make([][]any, 0, len(outcomes))
	ok := 0
	for _, o := range outcomes {
		status := "ok"
		if o.Success {
			ok++
		} else {
			status = "failed"
		}
		data = append(data, []any{o.Job.Interpreter.ID.String(), string(o.Job.Target), status, o.ExitCode})
	}
	_ = tbl.Bulk(data)
	_ = tbl.Render()

	fmt.Fprintf(w, "\nBuild summary: Total: %d  Success: %d  Failed: %d\n\n", len(outcomes), ok, len(outcomes)-ok)
}

func renderCollection(w io.Writer, collection *wheelmatrix.Collection) {
	fmt.Fprintf(w, "\nArtifacts stored in %s\n\n", collection.DistDir)

	tbl := newTable(w, "File", "Kind", "Size", "SHA256", "Tags")
	data := make([][]any, 0, len(collection.Files))
	for _, f := range collection.Files {
		tags := "-"
		if f.Wheel != nil {
			tags = strings.Join([]string{f.Wheel.PythonTag, f.Wheel.ABITag, f.Wheel.PlatformTag}, "-")
		}
		data = append(data, []any{f.Name, f.Kind, humanize.IBytes(uint64(f.Size)), shortHash(f.SHA256), tags})
	}
	_ = tbl.Bulk(data)
	_ = tbl.Render()
	fmt.Fprintln(w)
}

func renderMatrix(w io.Writer, strategy string, rows []matrixRow) {
	fmt.Fprintf(w, "Interpreter locator: %s\n\n", strategy)

	tbl := newTable(w, "Interpreter", "Target", "Path")
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{r.id.String(), string(r.target), r.status()})
	}
	_ = tbl.Bulk(data)
	_ = tbl.Render()
}

func printDecision(w io.Writer, decision wheelmatrix.ReleaseDecision, uploaded []string) {
	if !decision.Release {
		fmt.Fprintf(w, "Upload skipped: %s\n", decision.Reason())
		return
	}
	fmt.Fprintf(w, "Uploaded %d wheels (%s)\n", len(uploaded), decision.Reason())
	for _, name := range uploaded {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

func printFailures(w io.Writer, failures *wheelmatrix.BuildFailures) {
	fmt.Fprint(w, color.Danger.Sprint("-> "))
	fmt.Fprintln(w, color.Danger.Sprintf("%d of %d wheel builds failed:", len(failures.Failed), failures.Total))
	for _, o := range failures.Failed {
		fmt.Fprintf(w, "  %s: %s\n", o.Job.Interpreter.ID, o.CommandLine)
	}
}

func renderReport(w io.Writer, report *wheelmatrix.Report) {
	if len(report.Outcomes) > 0 {
		renderOutcomes(w, report.Outcomes)
	}
	if report.Collection != nil {
		renderCollection(w, report.Collection)
	}
	fmt.Fprintf(w, "Run %s: %s\n", report.RunID, report.Path())
	if report.Decision.RefEnv != "" {
		printDecision(w, report.Decision, report.Uploaded)
	}
}

func shortHash(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
