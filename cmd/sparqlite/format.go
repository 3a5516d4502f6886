package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/exec"
	"github.com/wbrown/sparqlite/optimize"
	"github.com/wbrown/sparqlite/rdf"
)

// resultTable renders a Select result's bindings as a markdown table
// with a row count footer. No column truncation: query results here
// are inspected, not logged at volume.
func resultTable(vars []algebra.Symbol, rows []algebra.Binding) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", vars)
	}

	out := &strings.Builder{}
	alignment := make([]tw.Align, len(vars))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, len(vars))
	for i, v := range vars {
		headers[i] = string(v)
	}
	table.Header(headers)

	for _, b := range rows {
		row := make([]string, len(vars))
		for i, v := range vars {
			if t, ok := b.Get(v); ok {
				row[i] = t.String()
			} else {
				row[i] = ""
			}
		}
		table.Append(row)
	}
	table.Render()
	fmt.Fprintf(out, "\n_%d rows_\n", len(rows))
	return out.String()
}

func graphTable(triples []rdf.Triple) string {
	out := &strings.Builder{}
	for _, t := range triples {
		fmt.Fprintf(out, "%s %s %s .\n", t.Subject.String(), t.Predicate.String(), t.Object.String())
	}
	fmt.Fprintf(out, "\n_%d triples_\n", len(triples))
	return out.String()
}

// printResult renders one exec.Result according to its populated field,
// writing to w with useColor controlling whether row counts/headers get
// fatih/color highlighting.
func printResult(w io.Writer, r *exec.Result, useColor bool) {
	switch {
	case r.Explain != nil:
		printExplain(w, r.Explain, useColor)
	case r.Graph != nil:
		fmt.Fprint(w, graphTable(r.Graph.Triples()))
	case r.Select != nil || r.Vars != nil:
		fmt.Fprint(w, resultTable(r.Vars, r.Select))
	default:
		ans := "false"
		if r.Ask {
			ans = "true"
		}
		if useColor {
			ans = colorizeBool(r.Ask)
		}
		fmt.Fprintf(w, "%s\n", ans)
	}
}

func colorizeBool(b bool) string {
	if b {
		return color.GreenString("true")
	}
	return color.RedString("false")
}

// printExplain renders an optimizer ExplainReport, prefixing each
// pass with a colored delimiter when the pass actually changed the
// tree.
func printExplain(w io.Writer, r *optimize.ExplainReport, useColor bool) {
	bullet := func(changed bool, label string) string {
		mark := "no-op"
		if changed {
			mark = "rewritten"
		}
		if useColor {
			c := color.FgYellow
			if changed {
				c = color.FgGreen
			}
			return fmt.Sprintf("  %s: %s", label, color.New(c).Sprint(mark))
		}
		return fmt.Sprintf("  %s: %s", label, mark)
	}
	fmt.Fprintf(w, "BGPs: %d  Filters: %d  Triples: %d\n", r.BGPCount, r.FilterCount, r.TripleCount)
	fmt.Fprintln(w, bullet(r.FoldingChanges, "constant folding"))
	fmt.Fprintln(w, bullet(r.ReorderingChanges, "BGP reordering"))
	fmt.Fprintln(w, bullet(r.PushdownChanges, "filter pushdown"))
	fmt.Fprintln(w, "\nfinal plan:")
	fmt.Fprintln(w, algebra.Print(r.FinalTree))
}
