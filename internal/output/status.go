package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/temirov/impromptu/internal/selection"
	"github.com/temirov/impromptu/internal/utils"
)

const (
	statusPathHeader      = "Path"
	statusSizeHeader      = "Size"
	statusFooterFormat    = "Total Files %d"
	statusCharactersLabel = "%s characters"
	statusTokensLabel     = "%s characters, ~%s tokens"
	statusEmptyMessage    = "No files selected."
)

// StatusRow describes one selected file in the status table.
type StatusRow struct {
	RelativePath string
	SizeBytes    int64
}

// RenderStatusTable writes the selected files and the assembled prompt size to writer.
func RenderStatusTable(writer io.Writer, rows []StatusRow, totals selection.Change) {
	if len(rows) == 0 {
		fmt.Fprintln(writer, statusEmptyMessage)
		fmt.Fprintln(writer, FormatTotals(totals))
		return
	}
	table := tablewriter.NewWriter(writer)
	table.SetHeader([]string{statusPathHeader, statusSizeHeader})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, row := range rows {
		table.Append([]string{row.RelativePath, utils.FormatFileSize(row.SizeBytes)})
	}
	table.SetFooter([]string{fmt.Sprintf(statusFooterFormat, len(rows)), FormatTotals(totals)})
	table.Render()
}

// FormatTotals renders a size notification as "N characters", adding tokens when they were counted.
func FormatTotals(totals selection.Change) string {
	if totals.TokensCounted {
		return fmt.Sprintf(statusTokensLabel, utils.FormatCount(totals.Characters), utils.FormatCount(totals.Tokens))
	}
	return fmt.Sprintf(statusCharactersLabel, utils.FormatCount(totals.Characters))
}
