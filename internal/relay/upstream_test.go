package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestUpstreamAttachesServerKey(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"jobId":"job-1"}`))
	}))
	defer srv.Close()

	upstream, err := NewUpstream(srv.URL, "secret-key", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("new upstream: %v", err)
	}

	resp, err := upstream.Generate(context.Background(), []byte(`{"prompt":"a cat","model":"flux"}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("authorization = %q, want server-held key", gotAuth)
	}
	if gotPath != "/generate" {
		t.Fatalf("path = %q", gotPath)
	}
	if resp.Status != http.StatusOK || !strings.Contains(string(resp.Body), "job-1") {
		t.Fatalf("resp = %+v", resp)
	}

	if _, err := upstream.JobStatus(context.Background(), "job 1"); err != nil {
		t.Fatalf("job status: %v", err)
	}
	if gotPath != "/jobs/job%201" {
		t.Fatalf("path = %q, want escaped job id", gotPath)
	}

	if _, err := upstream.VideoStatus(context.Background(), "op-7"); err != nil {
		t.Fatalf("video status: %v", err)
	}
	if gotPath != "/video/operations/op-7" {
		t.Fatalf("path = %q", gotPath)
	}
}

type fakeExecutor struct {
	queries []string
	args    [][]any
}

func (f *fakeExecutor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}

func TestPGAuditWritesRows(t *testing.T) {
	exec := &fakeExecutor{}
	audit := NewPGAudit(exec, zerolog.Nop())
	ctx := context.Background()

	if err := audit.Record(ctx, AuditRecord{Provider: "flux", Model: "flux", Prompt: "a cat", JobID: "job-1", Status: "submitted"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := audit.UpdateStatus(ctx, "job-1", "succeeded"); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(exec.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(exec.queries))
	}
	if !strings.Contains(exec.queries[0], "INSERT INTO job_audit") {
		t.Fatalf("first query = %q", exec.queries[0])
	}
	if !strings.Contains(exec.queries[1], "UPDATE job_audit") {
		t.Fatalf("second query = %q", exec.queries[1])
	}
	if got := exec.args[1]; got[0] != "job-1" || got[1] != "succeeded" {
		t.Fatalf("update args = %v", got)
	}
}
