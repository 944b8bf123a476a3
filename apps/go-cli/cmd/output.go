package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/slush-dev/pushclient"
	"gopkg.in/yaml.v3"
)

// yamlOut prints data as a YAML document to w.
func yamlOut(w io.Writer, data any) {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	enc.Encode(data)
	enc.Close()
}

// renderTable renders rows under headers with rounded borders.
func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// printMessage prints one foreground message as text or a YAML document.
func printMessage(w io.Writer, p pushclient.MessagePayload, asYAML bool) {
	if asYAML {
		fmt.Fprintln(w, "---")
		yamlOut(w, p)
		return
	}

	title, body := "", ""
	if p.Notification != nil {
		title, body = p.Notification.Title, p.Notification.Body
	}
	fmt.Fprintf(w, ">> [%s] %s", stringOr(p.From, "?"), stringOr(title, "(no title)"))
	if body != "" {
		fmt.Fprintf(w, ": %s", truncateStr(body, 120))
	}
	fmt.Fprintln(w)
	if p.MessageID != "" {
		fmt.Fprintf(w, "   id: %s\n", p.MessageID)
	}
	if p.FCMOptions != nil && p.FCMOptions.Link != "" {
		fmt.Fprintf(w, "   link: %s\n", p.FCMOptions.Link)
	}
	keys := make([]string, 0, len(p.Data))
	for k := range p.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "   %s=%s\n", k, truncateStr(p.Data[k], 120))
	}
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// truncateStr flattens s to one line and shortens it to max runes.
func truncateStr(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
