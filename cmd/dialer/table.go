package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dialer/internal/api"
	"dialer/internal/assets"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func businessTable(businesses []api.Business, now time.Time) string {
	rows := make([][]string, 0, len(businesses))
	for _, b := range businesses {
		rows = append(rows, []string{
			b.ID,
			b.Name,
			b.Phone,
			discountLabel(b),
			b.CallStatus.Label(),
			relativeTime(b.LastCalled, now),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Phone", "Discount", "Status", "Last Called"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func recordingTable(entries []assets.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		marker := ""
		if e.IsActive {
			marker = "*"
		}
		created := e.Created()
		rows = append(rows, []string{marker, e.Key, e.Filename, relativeTime(&created, now)})
	}
	return renderTable([]string{"Active", "Key", "File", "Created"}, rows, nil)
}

func discountLabel(b api.Business) string {
	if !b.HasDiscount {
		return "-"
	}
	if b.DiscountAmount == "" {
		return "yes"
	}
	if b.DiscountDetails == "" {
		return b.DiscountAmount
	}
	return fmt.Sprintf("%s (%s)", b.DiscountAmount, b.DiscountDetails)
}

func relativeTime(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}
