package ipc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/config"
	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/observability"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default().Server
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	logger := observability.NewLogger(observability.ERROR, &bytes.Buffer{})
	return NewServer(cfg, logger, nil)
}

func vectorFields(vals ...float64) []string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return parts
}

func run(s *Server, sess *session, line string) string {
	resp, _ := s.dispatch(sess, line)
	return resp
}

func TestDispatchRequiresIndex(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}

	resp := run(s, sess, "WRITE 1 2 3")
	if !strings.HasPrefix(resp, "ERROR") {
		t.Fatalf("expected error before CREATE, got %q", resp)
	}
}

func TestDispatchCreateWriteSearch(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}

	resp := run(s, sess, "CREATE 3 euclidean")
	if resp != "OK" {
		t.Fatalf("CREATE: got %q", resp)
	}

	cmd := "WRITE " + strings.Join(vectorFields(1, 0, 0), " ")
	resp = run(s, sess, cmd)
	if !strings.HasPrefix(resp, "OK ") {
		t.Fatalf("WRITE: got %q", resp)
	}

	cmd = "WRITE " + strings.Join(vectorFields(0, 1, 0), " ")
	if resp = run(s, sess, cmd); !strings.HasPrefix(resp, "OK ") {
		t.Fatalf("WRITE: got %q", resp)
	}

	searchCmd := "SEARCH 10 1 " + strings.Join(vectorFields(1, 0, 0), " ")
	resp = run(s, sess, searchCmd)
	lines := strings.Split(resp, "\n")
	if !strings.HasPrefix(lines[0], "OK 1") {
		t.Fatalf("SEARCH: got %q", resp)
	}
	if len(lines) != 2 {
		t.Fatalf("SEARCH: expected 1 result line, got %q", resp)
	}
}

func TestDispatchCreateRejectsBadSimilarity(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}

	resp := run(s, sess, "CREATE 3 manhattan")
	if !strings.HasPrefix(resp, "ERROR") {
		t.Fatalf("expected error for unknown similarity, got %q", resp)
	}
}

func TestDispatchWriteDimensionMismatch(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}
	run(s, sess, "CREATE 3 euclidean")

	resp := run(s, sess, "WRITE 1 2")
	if !strings.HasPrefix(resp, "ERROR") {
		t.Fatalf("expected dimension mismatch error, got %q", resp)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}

	resp := run(s, sess, "FROBNICATE")
	if !strings.HasPrefix(resp, "ERROR unknown command") {
		t.Fatalf("got %q", resp)
	}
}

func TestDispatchMemoryReportsGraphStats(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}
	run(s, sess, "CREATE 2 euclidean")
	run(s, sess, "WRITE 1 1")

	resp := run(s, sess, "MEMORY")
	if !strings.HasPrefix(resp, "OK") {
		t.Fatalf("MEMORY: got %q", resp)
	}
	if !strings.Contains(resp, "graph_size 1") {
		t.Fatalf("expected graph_size 1 in MEMORY output, got %q", resp)
	}
}

func TestDispatchOptimizeInstallsCompression(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}
	run(s, sess, "CREATE 4 euclidean")
	for i := 0; i < 300; i++ {
		v := float64(i % 7)
		cmd := "WRITE " + strings.Join(vectorFields(v, v+1, v+2, v+3), " ")
		if resp := run(s, sess, cmd); !strings.HasPrefix(resp, "OK") {
			t.Fatalf("WRITE %d: got %q", i, resp)
		}
	}

	resp := run(s, sess, "OPTIMIZE 2")
	if !strings.HasPrefix(resp, "OK") {
		t.Fatalf("OPTIMIZE: got %q", resp)
	}

	searchCmd := "SEARCH 20 3 " + strings.Join(vectorFields(0, 1, 2, 3), " ")
	resp = run(s, sess, searchCmd)
	if !strings.HasPrefix(resp, "OK 3") {
		t.Fatalf("SEARCH after OPTIMIZE: got %q", resp)
	}
}

func TestDispatchAuthGatesCommands(t *testing.T) {
	cfg := config.Default().Server
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	cfg.JWTSecret = "test-secret"
	logger := observability.NewLogger(observability.ERROR, &bytes.Buffer{})
	s := NewServer(cfg, logger, nil)
	sess := &session{id: "t"}

	resp := run(s, sess, "CREATE 3 euclidean")
	if !strings.HasPrefix(resp, "ERROR authentication required") {
		t.Fatalf("expected auth gate, got %q", resp)
	}

	token, err := GenerateToken("test-secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	resp = run(s, sess, "AUTH "+token)
	if resp != "OK" {
		t.Fatalf("AUTH: got %q", resp)
	}

	resp = run(s, sess, "CREATE 3 euclidean")
	if resp != "OK" {
		t.Fatalf("CREATE after AUTH: got %q", resp)
	}
}

func TestDispatchAuthRejectsBadToken(t *testing.T) {
	cfg := config.Default().Server
	cfg.JWTSecret = "test-secret"
	logger := observability.NewLogger(observability.ERROR, &bytes.Buffer{})
	s := NewServer(cfg, logger, nil)
	sess := &session{id: "t"}

	resp := run(s, sess, "AUTH not-a-real-token")
	if !strings.HasPrefix(resp, "ERROR") {
		t.Fatalf("expected rejection, got %q", resp)
	}
	if sess.authenticated {
		t.Fatal("session should not be authenticated after a bad token")
	}
}

func TestDispatchBulkload(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}
	run(s, sess, "CREATE 2 euclidean")

	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.ndjson")
	content := "[1,2]\n[3,4]\n[5,6]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	resp := run(s, sess, "BULKLOAD "+path)
	if resp != "OK 3" {
		t.Fatalf("BULKLOAD: got %q", resp)
	}
}

func TestDispatchBulkloadMissingFile(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "t"}
	run(s, sess, "CREATE 2 euclidean")

	resp := run(s, sess, "BULKLOAD /nonexistent/path.ndjson")
	if !strings.HasPrefix(resp, "ERROR") {
		t.Fatalf("expected error for missing file, got %q", resp)
	}
}

func TestStatusOf(t *testing.T) {
	if statusOf("OK 1") != "ok" {
		t.Fatal("expected ok")
	}
	if statusOf("ERROR bad") != "error" {
		t.Fatal("expected error")
	}
}
