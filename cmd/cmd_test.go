package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
	"github.com/theirongolddev/timeq/internal/query"
)

func TestCheckQuery(t *testing.T) {
	var buf bytes.Buffer
	if err := checkQuery(&buf, "WHERE project = acme VIEW chart CHART trend"); err != nil {
		t.Fatalf("checkQuery: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Canonical:", "Chart:     trend", "AST nodes", "Where:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckQuery_Error(t *testing.T) {
	var buf bytes.Buffer
	err := checkQuery(&buf, "VIEW table VIEW full")
	var se *query.SemanticError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *query.SemanticError", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote output on error: %q", buf.String())
	}
}

func TestQueryText(t *testing.T) {
	t.Cleanup(func() { flagQueryFile = "" })

	flagQueryFile = ""
	got, err := queryText([]string{"VIEW", "table"})
	if err != nil || got != "VIEW table" {
		t.Errorf("queryText(args) = %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "q.tq")
	if err := os.WriteFile(path, []byte("PERIOD all-time\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	flagQueryFile = path
	got, err = queryText(nil)
	if err != nil || got != "PERIOD all-time\n" {
		t.Errorf("queryText(file) = %q, %v", got, err)
	}
	if _, err := queryText([]string{"VIEW"}); err == nil {
		t.Error("expected error when both file and args are given")
	}
}

func TestResultKey(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	base := pipeline.Config{HoursPerWorkday: 8, ProjectType: model.ProjectHourly, Now: now}

	k1 := resultKey("v1", base)
	if k1 != resultKey("v1", base) {
		t.Error("key not stable")
	}
	if len(k1) != 16 {
		t.Errorf("len = %d, want 16", len(k1))
	}

	laterSameDay := base
	laterSameDay.Now = now.Add(3 * time.Hour)
	if resultKey("v1", laterSameDay) != k1 {
		t.Error("key changed within the same day")
	}

	for name, mut := range map[string]func(*pipeline.Config){
		"day":    func(c *pipeline.Config) { c.Now = now.AddDate(0, 0, 1) },
		"rate":   func(c *pipeline.Config) { c.DefaultRate = 90 },
		"order":  func(c *pipeline.Config) { c.Order = pipeline.OldestFirst },
		"budget": func(c *pipeline.Config) { c.BudgetHours = 100 },
	} {
		c := base
		mut(&c)
		if resultKey("v1", c) == k1 {
			t.Errorf("%s change did not change the key", name)
		}
	}
	if resultKey("v2", base) == k1 {
		t.Error("version change did not change the key")
	}
}

func TestShortVersion(t *testing.T) {
	if got := shortVersion(""); got != "pending" {
		t.Errorf("shortVersion(\"\") = %q", got)
	}
	if got := shortVersion("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortVersion = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("acme", 10); got != "acme" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a-very-long-project-name", 8); got != "a-very-…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestServerState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "timeqd.json")

	if _, ok := liveServer(path); ok {
		t.Fatal("liveServer reported a server with no state file")
	}

	self := serverState{PID: os.Getpid(), Addr: "127.0.0.1:1", Query: "PERIOD all-time"}
	if err := writeServerState(path, self); err != nil {
		t.Fatalf("writeServerState: %v", err)
	}
	got, ok := liveServer(path)
	if !ok || got.PID != self.PID || got.Addr != self.Addr {
		t.Errorf("liveServer = %+v, %v", got, ok)
	}

	if err := writeServerState(path, serverState{PID: -1}); err != nil {
		t.Fatal(err)
	}
	if _, ok := liveServer(path); ok {
		t.Error("dead pid reported alive")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("stale state file not removed: %v", err)
	}
}
