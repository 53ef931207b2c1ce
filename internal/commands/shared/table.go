// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// Table renders aligned columns to a writer.
type Table struct {
	headers []string
	rows    [][]string

	// MaxWidth truncates the last column so rows fit (0 disables).
	MaxWidth int

	// Styled renders headers with the Header style.
	Styled bool

	// HideHeader renders the rows only.
	HideHeader bool
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row; missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table.
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	lastMax := 0
	if t.MaxWidth > 0 && len(widths) > 1 {
		used := 0
		for _, wd := range widths[:len(widths)-1] {
			used += wd + 2
		}
		lastMax = max(t.MaxWidth-used, 10)
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !t.HideHeader {
		fmt.Fprintln(tw, strings.Join(t.headers, "\t"))
	}
	for _, row := range t.rows {
		cells := make([]string, len(t.headers))
		copy(cells, row)
		if lastMax > 0 {
			cells[len(cells)-1] = truncate(cells[len(cells)-1], lastMax)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if t.HideHeader {
		_, err := buf.WriteTo(w)
		return err
	}

	header, body, _ := strings.Cut(buf.String(), "\n")
	if t.Styled {
		header = Header.Render(strings.TrimRight(header, " "))
	}
	_, err := io.WriteString(w, header+"\n"+body)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
