package trades

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/trade-paginator/pkg/pagination"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders one page.
type Formatter interface {
	FormatPage(page pagination.Page) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatMarkdown:
		return &TableFormatter{Markdown: true}
	default:
		return &TableFormatter{}
	}
}

// TableFormatter renders trades as an ASCII (or markdown) table.
type TableFormatter struct {
	Markdown bool
}

// FormatPage renders a page as a table with a totals footer.
func (f *TableFormatter) FormatPage(page pagination.Page) (string, error) {
	trades, err := FromPage(page)
	if err != nil {
		return "", err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"TID", "Date", "Type", "Price", "Amount"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.TID,
			tr.Date.Format(time.DateTime),
			tr.Type,
			tr.Price.String(),
			tr.Amount.String(),
		})
	}

	summary := Summarize(trades)
	if summary.Count > 0 {
		t.AppendFooter(table.Row{
			fmt.Sprintf("%d trades", summary.Count),
			"",
			fmt.Sprintf("%d/%d", summary.Buys, summary.Sells),
			"vwap " + summary.VWAP().StringFixed(2),
			summary.Volume.String(),
		})
	}

	if f.Markdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}

// JSONFormatter writes one record per line. Field order, unknown fields and
// number formatting are kept as received; insignificant whitespace is
// removed so every record fits on one line.
type JSONFormatter struct{}

// FormatPage renders a page as newline-delimited JSON.
func (f *JSONFormatter) FormatPage(page pagination.Page) (string, error) {
	var buf bytes.Buffer
	for _, r := range page {
		data, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("encode record %d: %w", r.TID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
