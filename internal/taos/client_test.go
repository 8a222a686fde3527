package taos

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestClient_DeniedStatementNeverReachesSubmitter(t *testing.T) {
	mem := NewMemorySubmitter()
	client := NewClientWithSubmitter(mem, "demo")

	_, err := client.Execute(context.Background(), "DROP TABLE demo.meters;")

	if !errors.Is(err, ErrStatementDenied) {
		t.Fatalf("expected ErrStatementDenied, got %v", err)
	}

	if calls := mem.Calls(); len(calls) != 0 {
		t.Fatalf("expected no submitted statements, got %v", calls)
	}
}

func TestClient_NormalizesEmptyResponse(t *testing.T) {
	mem := NewMemorySubmitter()
	mem.PushResponse(&RawResponse{})
	client := NewClientWithSubmitter(mem, "demo")

	rs, err := client.Execute(context.Background(), "SELECT * FROM demo.meters;")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rs.Status != "" {
		t.Errorf("expected empty status, got %q", rs.Status)
	}
	if rs.Head == nil || len(rs.Head) != 0 {
		t.Errorf("expected empty head slice, got %v", rs.Head)
	}
	if rs.ColumnMeta == nil || len(rs.ColumnMeta) != 0 {
		t.Errorf("expected empty column meta slice, got %v", rs.ColumnMeta)
	}
	if rs.Data == nil || len(rs.Data) != 0 {
		t.Errorf("expected empty data slice, got %v", rs.Data)
	}
	if rs.Rows != -1 {
		t.Errorf("expected rows default -1, got %d", rs.Rows)
	}
}

func TestClient_WrapsSubmitterFailure(t *testing.T) {
	underlying := errors.New("connection refused")
	mem := NewMemorySubmitter().WithError(underlying)
	client := NewClientWithSubmitter(mem, "demo")

	_, err := client.Execute(context.Background(), "SELECT 1;")

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T: %v", err, err)
	}

	if execErr.Statement != "SELECT 1;" {
		t.Errorf("expected statement to be carried, got %q", execErr.Statement)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("expected wrapped error to unwrap to the underlying failure")
	}
}

func TestClient_ResolveDatabase(t *testing.T) {
	client := NewClientWithSubmitter(NewMemorySubmitter(), "demo")

	if got := client.ResolveDatabase(""); got != "demo" {
		t.Errorf("expected empty db to resolve to demo, got %q", got)
	}

	if got := client.ResolveDatabase("other"); got != "other" {
		t.Errorf("expected explicit db to pass through, got %q", got)
	}
}

func TestRESTSubmitter_Submit(t *testing.T) {
	var gotPath, gotBody, gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"column_meta":[["name","VARCHAR",64]],"data":[["demo"]],"rows":1}`))
	}))
	defer srv.Close()

	sub := newRESTSubmitter(Config{
		URL:      srv.URL,
		Username: "root",
		Password: "taosdata",
		Database: "demo",
		Timeout:  5 * time.Second,
	})

	raw, err := sub.Submit(context.Background(), "SHOW DATABASES;")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotPath != "/rest/sql/demo" {
		t.Errorf("expected path /rest/sql/demo, got %s", gotPath)
	}
	if gotBody != "SHOW DATABASES;" {
		t.Errorf("expected statement as body, got %q", gotBody)
	}
	if gotUser != "root" || gotPass != "taosdata" {
		t.Errorf("expected basic auth root/taosdata, got %s/%s", gotUser, gotPass)
	}

	if raw.Rows == nil || *raw.Rows != 1 {
		t.Errorf("expected rows 1, got %v", raw.Rows)
	}
	if !reflect.DeepEqual(raw.Data, [][]any{{"demo"}}) {
		t.Errorf("unexpected data: %v", raw.Data)
	}
	if len(raw.ColumnMeta) != 1 || raw.ColumnMeta[0].Name != "name" || raw.ColumnMeta[0].Type != "VARCHAR" || raw.ColumnMeta[0].Length != 64 {
		t.Errorf("unexpected column meta: %+v", raw.ColumnMeta)
	}
}

func TestRESTSubmitter_ServerErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":9826,"desc":"Table does not exist"}`))
	}))
	defer srv.Close()

	sub := newRESTSubmitter(Config{URL: srv.URL, Username: "root", Password: "taosdata", Database: "demo", Timeout: 5 * time.Second})

	_, err := sub.Submit(context.Background(), "SELECT * FROM demo.nope;")

	if err == nil {
		t.Fatal("expected error for non-zero server code")
	}
}

func TestRESTSubmitter_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	sub := newRESTSubmitter(Config{URL: srv.URL, Username: "root", Password: "taosdata", Database: "demo", Timeout: 5 * time.Second})

	if _, err := sub.Submit(context.Background(), "SHOW DATABASES;"); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestColumnMeta_UnmarshalNumericType(t *testing.T) {
	var meta ColumnMeta

	if err := json.Unmarshal([]byte(`["ts",9,8]`), &meta); err != nil {
		t.Fatalf("expected v2 numeric type to parse, got %v", err)
	}

	if meta.Name != "ts" || meta.Type != "9" || meta.Length != 8 {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		URL:      "http://127.0.0.1:6041",
		Username: "root",
		Password: "taosdata",
		Database: "demo",
		Timeout:  30 * time.Second,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}

	if err := (Config{}).Validate(); err == nil {
		t.Fatal("expected empty config to fail validation")
	}

	broken := valid
	broken.URL = "not a url"

	if err := broken.Validate(); err == nil {
		t.Fatal("expected malformed URL to fail validation")
	}
}
