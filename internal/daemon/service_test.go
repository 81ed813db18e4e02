package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
)

func writeData(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	writeData(t, dir, "acme/2024.yaml", "rate: 100\nentries:\n  - {date: 2024-03-04, hours: 6}\n  - {date: 2024-03-05, hours: 4}\n")

	exec := pipeline.DefaultConfig()
	exec.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := New(Config{DataDir: dir, Exec: exec, Interval: 10 * time.Second})
	s.pollOnce()
	return s, dir
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Files: 2, Entries: 10, TotalHours: 40.5, TotalInvoiced: 4000}
	curr := Snapshot{Files: 3, Entries: 14, TotalHours: 52, TotalInvoiced: 5150}

	delta := diffSnapshots(prev, curr)
	if delta.Files != 1 || delta.Entries != 4 {
		t.Fatalf("delta = %+v", delta)
	}
	if math.Abs(delta.Hours-11.5) > 1e-9 || math.Abs(delta.Invoiced-1150) > 1e-9 {
		t.Fatalf("delta = %+v", delta)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		DataDir:      ".",
		Interval:     10 * time.Second,
		EventsBuffer: 2,
	})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnce_EventsOnlyOnChange(t *testing.T) {
	s, dir := newTestService(t)

	st := s.snapshotStatus()
	if st.Summary.Entries != 2 || st.Summary.TotalHours != 10 || st.Summary.TotalInvoiced != 1000 {
		t.Fatalf("initial snapshot = %+v", st.Summary)
	}
	if st.EventCount != 1 {
		t.Fatalf("events after first poll = %d, want 1", st.EventCount)
	}

	s.pollOnce()
	if st := s.snapshotStatus(); st.EventCount != 1 || st.PollCount != 2 {
		t.Errorf("unchanged poll: events %d, polls %d", st.EventCount, st.PollCount)
	}

	writeData(t, dir, "beta/extra.json", `[{"date":"2024-04-01","hours":5,"rate":50}]`)
	s.pollOnce()

	s.mu.RLock()
	last := s.events[len(s.events)-1]
	s.mu.RUnlock()
	if last.Type != "data_changed" {
		t.Errorf("event type = %q, want data_changed", last.Type)
	}
	if last.Delta.Files != 1 || last.Delta.Entries != 1 || last.Delta.Hours != 5 || last.Delta.Invoiced != 250 {
		t.Errorf("delta = %+v", last.Delta)
	}
}

func TestHandlers(t *testing.T) {
	s, _ := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	_ = resp.Body.Close()
	if st.Summary.Version == "" || st.Query != "PERIOD all-time" {
		t.Errorf("status = %+v", st)
	}

	q := url.QueryEscape("WHERE month = march VIEW table PERIOD all-time")
	resp, err = http.Get(srv.URL + "/v1/query?q=" + q)
	if err != nil {
		t.Fatal(err)
	}
	var pd model.ProcessedData
	if err := json.NewDecoder(resp.Body).Decode(&pd); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query status = %d", resp.StatusCode)
	}
	if len(pd.MonthlyData) != 1 || pd.MonthlyData[0].Hours != 10 || pd.Summary.TotalInvoiced != 1000 {
		t.Errorf("report = %+v", pd)
	}

	resp, err = http.Get(srv.URL + "/v1/query?q=" + url.QueryEscape("VIEW table VIEW chart"))
	if err != nil {
		t.Fatal(err)
	}
	var qe QueryError
	if err := json.NewDecoder(resp.Body).Decode(&qe); err != nil {
		t.Fatalf("decoding error: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad query status = %d", resp.StatusCode)
	}
	if qe.Kind != "semantic error" || qe.Line != 1 || qe.Column != 12 {
		t.Errorf("query error = %+v", qe)
	}

	resp, err = http.Get(srv.URL + "/v1/events")
	if err != nil {
		t.Fatal(err)
	}
	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if len(events) != 1 || events[0].Type != "snapshot" {
		t.Errorf("events = %+v", events)
	}
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	s, _ := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() && len(lines) < 2 {
		lines = append(lines, sc.Text())
	}
	if len(lines) < 2 || lines[0] != "event: snapshot" || !strings.HasPrefix(lines[1], "data: ") {
		t.Fatalf("stream lines = %q", lines)
	}
	var ev Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Snapshot.Entries != 2 {
		t.Errorf("streamed snapshot = %+v", ev.Snapshot)
	}
}

func TestSocketQueryAndWatch(t *testing.T) {
	s, dir := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() SocketMessage {
		t.Helper()
		var m SocketMessage
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}
	send := func(m SocketMessage) {
		t.Helper()
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(SocketMessage{Type: "query", ID: "a", Query: "PERIOD all-time"})
	if m := read(); m.Type != "result" || m.ID != "a" || m.Report == nil || m.Report.Summary.TotalHours != 10 {
		t.Fatalf("query reply = %+v", m)
	}

	send(SocketMessage{Type: "watch", ID: "bad", Query: "VIEW table CHART trend"})
	if m := read(); m.Type != "error" || m.Error == nil || m.Error.Kind != "semantic error" {
		t.Fatalf("bad watch reply = %+v", m)
	}

	send(SocketMessage{Type: "watch", ID: "w", Query: "PERIOD all-time"})
	if m := read(); m.Type != "result" || m.ID != "w" {
		t.Fatalf("watch reply = %+v", m)
	}

	send(SocketMessage{Type: "bogus"})
	if m := read(); m.Type != "error" || m.Error.Kind != "protocol" {
		t.Fatalf("unknown type reply = %+v", m)
	}

	writeData(t, dir, "beta/extra.json", `[{"date":"2024-04-01","hours":5,"rate":50}]`)
	s.pollOnce()

	if m := read(); m.Type != "event" || m.Event == nil || m.Event.Type != "data_changed" {
		t.Fatalf("expected data_changed event, got %+v", m)
	}
	if m := read(); m.Type != "result" || m.ID != "w" || m.Report.Summary.TotalHours != 15 {
		t.Fatalf("watched result = %+v", m)
	}
}
