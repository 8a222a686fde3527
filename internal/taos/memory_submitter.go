package taos

import (
	"context"
	"strings"
	"sync"
)

// MemorySubmitter is an in-memory Submitter used to unit test catalog logic
// without a running TDengine. Responses are scripted per statement prefix or
// queued in order; every submitted statement is recorded.
type MemorySubmitter struct {
	mu        sync.Mutex
	calls     []string
	queue     []*RawResponse
	scripted  map[string]*RawResponse
	stmtErrs  map[string]error
	globalErr error
}

func NewMemorySubmitter() *MemorySubmitter {
	return &MemorySubmitter{
		scripted: make(map[string]*RawResponse),
		stmtErrs: make(map[string]error),
	}
}

// WithError makes every subsequent Submit call fail with err.
func (m *MemorySubmitter) WithError(err error) *MemorySubmitter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalErr = err
	return m
}

// FailOn makes any statement containing fragment fail with err.
func (m *MemorySubmitter) FailOn(fragment string, err error) *MemorySubmitter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stmtErrs[fragment] = err
	return m
}

// ScriptOn returns resp for any statement containing fragment.
func (m *MemorySubmitter) ScriptOn(fragment string, resp *RawResponse) *MemorySubmitter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[fragment] = resp
	return m
}

// PushResponse queues a response consumed by the next unscripted Submit call.
func (m *MemorySubmitter) PushResponse(resp *RawResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

func (m *MemorySubmitter) Submit(_ context.Context, stmt string) (*RawResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, stmt)

	if m.globalErr != nil {
		return nil, m.globalErr
	}

	for fragment, err := range m.stmtErrs {
		if strings.Contains(stmt, fragment) {
			return nil, err
		}
	}

	for fragment, resp := range m.scripted {
		if strings.Contains(stmt, fragment) {
			return resp, nil
		}
	}

	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}

	return &RawResponse{}, nil
}

// Calls returns a snapshot of every submitted statement in order.
func (m *MemorySubmitter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// RowsResponse builds a RawResponse with the given column names and rows,
// matching what a v3 server would return for a simple select.
func RowsResponse(columns []string, rows [][]any) *RawResponse {
	var (
		code = 0
		n    = len(rows)
		meta = make([]ColumnMeta, 0, len(columns))
	)

	for _, c := range columns {
		meta = append(meta, ColumnMeta{Name: c, Type: "VARCHAR", Length: 64})
	}

	return &RawResponse{
		Code:       &code,
		ColumnMeta: meta,
		Data:       rows,
		Rows:       &n,
	}
}
