package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/catalog"
	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/taos"
)

func newTestCatalog(mem *taos.MemorySubmitter) *catalog.Catalog {
	return catalog.New(taos.NewClientWithSubmitter(mem, "demo"))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func findTool(t *testing.T, defs []toolDef, name string) toolDef {
	t.Helper()

	for _, def := range defs {
		if def.tool.Name == name {
			return def
		}
	}

	t.Fatalf("tool %s not registered", name)
	return toolDef{}
}

func TestToolDefs_NamesAreUnique(t *testing.T) {
	defs := toolDefs(newTestCatalog(taos.NewMemorySubmitter()))

	seen := make(map[string]bool, len(defs))

	for _, def := range defs {
		if seen[def.tool.Name] {
			t.Errorf("duplicate tool name %s", def.tool.Name)
		}
		seen[def.tool.Name] = true
	}

	if len(defs) != 21 {
		t.Errorf("expected 21 tools in the catalog, got %d", len(defs))
	}
}

func TestGetAllStablesTool(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.ScriptOn("STABLES", taos.RowsResponse([]string{"stable_name"}, [][]any{{"meters"}}))

	def := findTool(t, toolDefs(newTestCatalog(mem)), "get_all_stables")

	res, err := def.handler(context.Background(), callRequest("get_all_stables", map[string]any{}))

	if err != nil {
		t.Fatalf("expected no protocol error, got %v", err)
	}

	if res.IsError {
		t.Fatalf("expected successful result, got error result %+v", res)
	}

	calls := mem.Calls()
	if len(calls) != 1 || calls[0] != "SHOW demo.STABLES;" {
		t.Errorf("unexpected statements: %v", calls)
	}
}

func TestRequiredParameterMissing(t *testing.T) {
	def := findTool(t, toolDefs(newTestCatalog(taos.NewMemorySubmitter())), "get_field_infos")

	res, err := def.handler(context.Background(), callRequest("get_field_infos", map[string]any{}))

	if err != nil {
		t.Fatalf("expected no protocol error, got %v", err)
	}

	if !res.IsError {
		t.Fatal("expected error result for missing stable_name")
	}
}

func TestDeniedStatementSurfacesSecurityMessage(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	def := findTool(t, toolDefs(newTestCatalog(mem)), "query_taos_db_data")

	res, err := def.handler(context.Background(), callRequest("query_taos_db_data", map[string]any{
		"sql_stmt": "DROP TABLE demo.meters;",
	}))

	if err != nil {
		t.Fatalf("expected no protocol error, got %v", err)
	}

	if !res.IsError {
		t.Fatal("expected error result for denied statement")
	}

	if calls := mem.Calls(); len(calls) != 0 {
		t.Errorf("denied statement must never be submitted, got %v", calls)
	}
}
