package taos

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// ColumnMeta describes one result column. The REST API encodes it as a
// [name, type, length] triple; type is a string on v3 servers and a numeric
// code on v2, so both forms are accepted.
type ColumnMeta struct {
	Name   string
	Type   string
	Length int
}

func (m ColumnMeta) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{m.Name, m.Type, m.Length})
}

func (m *ColumnMeta) UnmarshalJSON(b []byte) error {
	var triple []json.RawMessage

	if err := json.Unmarshal(b, &triple); err != nil {
		return err
	}

	if len(triple) != 3 {
		return fmt.Errorf("column meta must have 3 elements, got %d", len(triple))
	}

	if err := json.Unmarshal(triple[0], &m.Name); err != nil {
		return fmt.Errorf("column meta name: %w", err)
	}

	if err := json.Unmarshal(triple[1], &m.Type); err != nil {
		var code int
		if err := json.Unmarshal(triple[1], &code); err != nil {
			return fmt.Errorf("column meta type: %w", err)
		}
		m.Type = fmt.Sprintf("%d", code)
	}

	if err := json.Unmarshal(triple[2], &m.Length); err != nil {
		return fmt.Errorf("column meta length: %w", err)
	}

	return nil
}

// RawResponse is the wire shape returned by the REST endpoint. Pointer fields
// distinguish "absent" from zero values so normalization can apply the
// documented defaults.
type RawResponse struct {
	Status     string       `json:"status"`
	Head       []string     `json:"head"`
	Code       *int         `json:"code"`
	Desc       string       `json:"desc"`
	ColumnMeta []ColumnMeta `json:"column_meta"`
	Data       [][]any      `json:"data"`
	Rows       *int         `json:"rows"`
}

// ResultSet is the canonical tabular shape every operation returns. Field
// presence is stable regardless of the server's protocol version: status
// defaults to "", head (the legacy column-label list) and column_meta and
// data default to empty slices, rows defaults to -1 when the server sends no
// count. Downstream tooling depends on these defaults.
type ResultSet struct {
	Status     string       `json:"status"`
	Head       []string     `json:"head"`
	ColumnMeta []ColumnMeta `json:"column_meta"`
	Data       [][]any      `json:"data"`
	Rows       int          `json:"rows"`
}

// ColumnNames returns the names from column_meta in order.
func (rs *ResultSet) ColumnNames() []string {
	return lo.Map(rs.ColumnMeta, func(m ColumnMeta, _ int) string {
		return m.Name
	})
}

// FirstValue returns the first cell of the first row, or nil when the result
// holds no data.
func (rs *ResultSet) FirstValue() any {
	if len(rs.Data) == 0 || len(rs.Data[0]) == 0 {
		return nil
	}

	return rs.Data[0][0]
}

func normalizeResponse(raw *RawResponse) *ResultSet {
	var rs = ResultSet{
		Status:     raw.Status,
		Head:       raw.Head,
		ColumnMeta: raw.ColumnMeta,
		Data:       raw.Data,
		Rows:       -1,
	}

	if rs.Head == nil {
		rs.Head = []string{}
	}

	if rs.ColumnMeta == nil {
		rs.ColumnMeta = []ColumnMeta{}
	}

	if rs.Data == nil {
		rs.Data = [][]any{}
	}

	if raw.Rows != nil {
		rs.Rows = *raw.Rows
	}

	return &rs
}
