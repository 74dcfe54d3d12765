package xero

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RowKind is the RowType discriminator of a report row.
type RowKind string

const (
	RowKindHeader     RowKind = "Header"
	RowKindSection    RowKind = "Section"
	RowKindRow        RowKind = "Row"
	RowKindSummaryRow RowKind = "SummaryRow"
)

const accountCodeAttribute = "AccountCode"

type (
	// Report is the first report of a ProfitAndLoss response.
	Report struct {
		ID   string
		Name string
		Rows []Row
	}

	// Row is a report row. Sections carry nested Rows, data rows carry Cells.
	Row struct {
		Kind  RowKind
		Title string
		Cells []Cell
		Rows  []Row
	}

	Cell struct {
		Value      string
		Attributes []Attribute
	}

	Attribute struct {
		Name  string
		Value string
	}
)

// Wire shapes. Rows and Cells stay raw so that each level can be checked
// before it is interpreted.
type (
	wireDocument struct {
		Reports *[]json.RawMessage `json:"Reports"`
	}

	wireReport struct {
		ReportID   string          `json:"ReportID"`
		ReportName string          `json:"ReportName"`
		Rows       json.RawMessage `json:"Rows"`
	}

	wireRow struct {
		RowType string          `json:"RowType"`
		Title   string          `json:"Title"`
		Cells   json.RawMessage `json:"Cells"`
		Rows    json.RawMessage `json:"Rows"`
	}

	wireCell struct {
		Value      json.RawMessage `json:"Value"`
		Attributes []wireAttribute `json:"Attributes"`
	}

	wireAttribute struct {
		Name  string          `json:"Name"`
		Value json.RawMessage `json:"Value"`
	}
)

// ParseReport decodes a ProfitAndLoss response body. Any structural problem
// (missing Reports, rows that are not lists, rows or cells that are not
// objects) is returned as a *ParseError for stage.
func ParseReport(stage Stage, data []byte) (*Report, error) {
	rep, err := parseReport(data)
	if err != nil {
		return nil, &ParseError{Stage: stage, Err: err}
	}
	return rep, nil
}

func parseReport(data []byte) (*Report, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Reports == nil {
		return nil, errors.New("missing Reports")
	}
	if len(*doc.Reports) == 0 {
		return nil, errors.New("empty Reports")
	}

	first := (*doc.Reports)[0]
	if isNull(first) {
		return nil, errors.New("Reports[0] is null")
	}
	var wr wireReport
	if err := json.Unmarshal(first, &wr); err != nil {
		return nil, fmt.Errorf("decode Reports[0]: %w", err)
	}
	if wr.Rows == nil {
		return nil, errors.New("missing Reports[0].Rows")
	}
	rows, err := parseRows(wr.Rows, "Reports[0].Rows")
	if err != nil {
		return nil, err
	}
	return &Report{ID: wr.ReportID, Name: wr.ReportName, Rows: rows}, nil
}

// parseRows treats an absent Rows as empty; an explicit null is not a list.
func parseRows(raw json.RawMessage, path string) ([]Row, error) {
	if raw == nil {
		return nil, nil
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%s is null, not a list", path)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s is not a list", path)
	}
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		if isNull(item) {
			return nil, fmt.Errorf("%s is null", p)
		}
		var wr wireRow
		if err := json.Unmarshal(item, &wr); err != nil {
			return nil, fmt.Errorf("%s is not a row object: %w", p, err)
		}
		cells, err := parseCells(wr.Cells, p+".Cells")
		if err != nil {
			return nil, err
		}
		nested, err := parseRows(wr.Rows, p+".Rows")
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Kind:  RowKind(wr.RowType),
			Title: wr.Title,
			Cells: cells,
			Rows:  nested,
		})
	}
	return rows, nil
}

func parseCells(raw json.RawMessage, path string) ([]Cell, error) {
	if raw == nil || isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s is not a list", path)
	}
	cells := make([]Cell, 0, len(items))
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		if isNull(item) {
			return nil, fmt.Errorf("%s is null", p)
		}
		var wc wireCell
		if err := json.Unmarshal(item, &wc); err != nil {
			return nil, fmt.Errorf("%s is not a cell object: %w", p, err)
		}
		cell := Cell{Value: scalarText(wc.Value)}
		for _, a := range wc.Attributes {
			cell.Attributes = append(cell.Attributes, Attribute{Name: a.Name, Value: scalarText(a.Value)})
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// scalarText returns strings as-is and numbers in their JSON form.
// Anything else reads as empty.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw)
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Attribute returns the value of the named attribute.
func (c Cell) Attribute(name string) (string, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Float parses the cell value. Empty, non-numeric and non-finite values
// read as zero.
func (c Cell) Float() float64 {
	s := strings.ReplaceAll(strings.TrimSpace(c.Value), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// AccountCode returns the account code carried by the first cell.
func (r Row) AccountCode() (AccountCode, bool) {
	if len(r.Cells) == 0 {
		return "", false
	}
	v, ok := r.Cells[0].Attribute(accountCodeAttribute)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return AccountCode(v), true
}

// CellFloat returns the numeric value of cell i, zero when absent.
func (r Row) CellFloat(i int) float64 {
	if i < 0 || i >= len(r.Cells) {
		return 0
	}
	return r.Cells[i].Float()
}

// AccountRows returns the data rows nested in sections that carry an
// account code, in document order. Top-level rows outside sections are
// ignored.
func (r *Report) AccountRows() []Row {
	var out []Row
	for _, section := range r.Rows {
		if section.Kind != RowKindSection {
			continue
		}
		for _, row := range section.Rows {
			if row.Kind != RowKindRow {
				continue
			}
			if _, ok := row.AccountCode(); ok {
				out = append(out, row)
			}
		}
	}
	return out
}
