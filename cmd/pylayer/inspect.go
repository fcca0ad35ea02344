// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pylayer/pylayer/internal/issue"
	"github.com/pylayer/pylayer/pkg/relocate"
)

// newInspectCommand creates the `pylayer inspect` command.
func newInspectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List the entries of a wheel or layer archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(app, args[0])
		},
	}
}

func runInspect(app *App, path string) error {
	f, err := app.Fs.Open(path)
	if err != nil {
		return issue.WrapWithContext(err, "open archive", path)
	}
	defer func() { _ = f.Close() }() // read-only handle

	info, err := f.Stat()
	if err != nil {
		return issue.WrapWithContext(err, "open archive", path)
	}
	entries, err := relocate.Inspect(f, info.Size())
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read archive").
			WithResource(path).
			WithIssue(issue.MalformedWheelId).
			Wrap(err).
			BuildError()
	}

	rows := make([][]string, 0, len(entries))
	var total uint64
	for _, e := range entries {
		rows = append(rows, []string{
			e.Name,
			methodName(e.Method),
			strconv.FormatUint(e.CompressedSize, 10),
			strconv.FormatUint(e.UncompressedSize, 10),
			fmt.Sprintf("%08x", e.CRC32),
		})
		total += e.UncompressedSize
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		Headers("NAME", "METHOD", "COMPRESSED", "SIZE", "CRC32").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	fmt.Fprintln(app.stdout, t.String())
	fmt.Fprintf(app.stdout, "%s %d entries, %d bytes uncompressed\n", KeyStyle.Render("Total:"), len(entries), total)
	return nil
}

func methodName(m uint16) string {
	switch m {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	default:
		return strconv.Itoa(int(m))
	}
}
