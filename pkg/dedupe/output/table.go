package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter renders one row per group using tablewriter.
type TableFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TableFormatter) Format(w *bytes.Buffer, r *Result) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Digest", "Size", "Count", "Wasted", "Kept", "Copies"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, g := range r.Snapshot.Groups {
		var kept, copies string
		if len(g.Paths) > 0 {
			kept = g.Paths[0]
			copies = strings.Join(g.Paths[1:], ", ")
		}
		table.Append([]string{
			g.Digest,
			humanize.IBytes(uint64(g.Size)),
			fmt.Sprintf("%d", len(g.Paths)),
			humanize.IBytes(uint64(g.Wasted())),
			kept,
			copies,
		})
	}
	table.Render()
	return nil
}

func init() {
	Register("table", func() Formatter {
		return &TableFormatter{}
	})
}

var _ Formatter = (*TableFormatter)(nil)
