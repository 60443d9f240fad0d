package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
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
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderMatrix lays one domain's route volumes out as an input-rows by
// output-columns grid, matching how the hardware documentation draws the
// router.
func renderMatrix(channels int, volume func(input, output int) (int, bool)) string {
	headers := make([]string, 0, channels+1)
	headers = append(headers, "In \\ Out")
	for out := 1; out <= channels; out++ {
		headers = append(headers, fmt.Sprintf("Out%d", out))
	}

	rows := make([][]string, 0, channels)
	for in := 1; in <= channels; in++ {
		row := make([]string, 0, channels+1)
		row = append(row, fmt.Sprintf("In%d", in))
		for out := 1; out <= channels; out++ {
			if v, ok := volume(in, out); ok {
				row = append(row, strconv.Itoa(v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}

	aligns := make([]columnAlignment, 0, channels+1)
	aligns = append(aligns, alignLeft)
	for out := 0; out < channels; out++ {
		aligns = append(aligns, alignRight)
	}
	return renderTable(headers, rows, aligns)
}
