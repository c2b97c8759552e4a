package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#9ecbff"})
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	keyStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8c8c8c", Dark: "#DDDDDD"})
)

// renderTable lays records out under the union of their keys.
func renderTable(records []donorperfect.Record) string {
	var headers []string
	seen := map[string]bool{}
	for _, r := range records {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = r.Value(h)
		}
		rows[i] = row
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// renderRecord prints one record as aligned key/value lines.
func renderRecord(r donorperfect.Record) string {
	width := 0
	for _, k := range r.Keys() {
		width = max(width, len(k))
	}
	var b strings.Builder
	for _, k := range r.Keys() {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render(fmt.Sprintf("%-*s", width, k)), r.Value(k))
	}
	return strings.TrimRight(b.String(), "\n")
}

func printRecords(w io.Writer, records []donorperfect.Record, asJSON bool) error {
	if asJSON {
		if records == nil {
			records = []donorperfect.Record{}
		}
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no rows"))
		return err
	}
	_, err := fmt.Fprintln(w, renderTable(records))
	return err
}

func printResult(w io.Writer, res donorperfect.Result, asJSON bool) error {
	switch r := res.(type) {
	case donorperfect.ScalarResult:
		if asJSON {
			return writeJSON(w, map[string]int64{"id": r.ID})
		}
		_, err := fmt.Fprintln(w, r.ID)
		return err
	case donorperfect.RecordResult:
		if asJSON {
			return writeJSON(w, r.Record)
		}
		_, err := fmt.Fprintln(w, renderRecord(r.Record))
		return err
	default:
		return printRecords(w, donorperfect.Records(res), asJSON)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
