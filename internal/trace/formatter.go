package trace

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Formatter renders a Collector's events as a table, used by the
// CLI's -verbose flag.
type Formatter struct {
	w io.Writer
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer) *Formatter { return &Formatter{w: w} }

// Write renders events as a table of name/latency/data columns.
func (f *Formatter) Write(events []Event) {
	table := tablewriter.NewTable(f.w)
	table.Header([]string{"event", "latency", "data"})
	for _, e := range events {
		table.Append([]string{e.Name, e.Latency.String(), fmt.Sprintf("%v", e.Data)})
	}
	table.Render()
}
