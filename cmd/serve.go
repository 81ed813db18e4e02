package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/daemon"
	"github.com/theirongolddev/timeq/internal/pipeline"
)

// serverState is written next to the running server so status and stop
// can find it.
type serverState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	Query     string    `json:"query"`
	DataDir   string    `json:"data_dir"`
	StartedAt time.Time `json:"started_at"`
}

var (
	flagServeAddr      string
	flagServeQuery     string
	flagServeInterval  time.Duration
	flagServeBackgr    bool
	flagServeStateFile string
	flagServeLogFile   string
	flagServeEvents    int
	flagServeChild     bool
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Serve queries over HTTP and stream data changes as SSE",
	RunE:    runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runServeStop,
}

func init() {
	pf := serveCmd.PersistentFlags()
	pf.StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config)")
	pf.StringVar(&flagServeStateFile, "state-file", filepath.Join(pipeline.CacheDir(), "timeqd.json"), "Server state file")

	f := serveCmd.Flags()
	f.StringVar(&flagServeQuery, "query", "PERIOD all-time", "Query whose totals are carried by events")
	f.DurationVar(&flagServeInterval, "interval", 0, "Polling interval (default from config)")
	f.StringVar(&flagServeLogFile, "log-file", filepath.Join(pipeline.CacheDir(), "timeqd.log"), "Log file when running in the background")
	f.IntVar(&flagServeEvents, "events-buffer", 200, "Events kept in memory for /v1/events")
	f.BoolVar(&flagServeBackgr, "background", false, "Start the server as a background process")
	f.BoolVar(&flagServeChild, "child", false, "Internal: this is the background child")
	_ = f.MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd, serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	if flagServeAddr == "" {
		flagServeAddr = cfg.Daemon.Addr
	}
	if flagServeInterval <= 0 {
		flagServeInterval = config.PollInterval(cfg)
	}

	if st, ok := liveServer(flagServeStateFile); ok {
		return fmt.Errorf("server already running (pid %d on %s)", st.PID, st.Addr)
	}
	if flagServeBackgr && !flagServeChild {
		return spawnBackground()
	}
	return serveForeground(cfg, dataDir)
}

// spawnBackground re-executes this binary without --background and
// returns once the child has started.
func spawnBackground() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	args := slices.DeleteFunc(slices.Clone(os.Args[1:]), func(a string) bool {
		return a == "--background" || strings.HasPrefix(a, "--background=")
	})
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	//nolint:gosec // log path comes from the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // re-running our own binary
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting background server: %w", err)
	}

	fmt.Printf("  Started timeq server (pid %d)\n", child.Process.Pid)
	fmt.Printf("  API: http://%s/v1/status\n", flagServeAddr)
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func serveForeground(cfg config.Config, dataDir string) error {
	st := serverState{
		PID:       os.Getpid(),
		Addr:      flagServeAddr,
		Query:     flagServeQuery,
		DataDir:   dataDir,
		StartedAt: time.Now(),
	}
	if err := writeServerState(flagServeStateFile, st); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServeStateFile) }()

	// Zero Now keeps the current month following the wall clock.
	execCfg := config.ExecutorConfig(cfg, time.Time{})

	svc := daemon.New(daemon.Config{
		DataDir:      dataDir,
		UseCache:     !flagNoCache,
		Query:        flagServeQuery,
		Exec:         execCfg,
		Interval:     flagServeInterval,
		Addr:         flagServeAddr,
		EventsBuffer: flagServeEvents,
	})

	slog.Info("server starting", "addr", flagServeAddr, "interval", flagServeInterval, "data_dir", dataDir)
	fmt.Printf("  timeq listening on http://%s\n", flagServeAddr)
	fmt.Printf("  Polling %s every %s\n", dataDir, flagServeInterval)
	fmt.Println("  Stop with: timeq serve stop")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	st, ok := liveServer(flagServeStateFile)
	if !ok {
		fmt.Println("  Server: not running")
		return nil
	}
	addr := st.Addr
	if flagServeAddr != "" {
		addr = flagServeAddr
	}

	fmt.Printf("  Server PID: %d (up %s)\n", st.PID, time.Since(st.StartedAt).Round(time.Second))
	fmt.Printf("  Address:    http://%s\n", addr)
	fmt.Printf("  Data:       %s\n", st.DataDir)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short probe
	if err != nil {
		fmt.Printf("  API:        unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API:        HTTP %d\n", resp.StatusCode)
		return nil
	}

	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("  API:        malformed response (%v)\n", err)
		return nil
	}

	sum := status.Summary
	if status.LastPollAt.IsZero() {
		fmt.Println("  Last poll:  pending")
	} else {
		fmt.Printf("  Last poll:  %s (%d polls)\n", status.LastPollAt.Local().Format(time.RFC3339), status.PollCount)
	}
	fmt.Printf("  Query:      %s\n", status.Query)
	fmt.Printf("  Snapshot:   %s\n", shortVersion(sum.Version))
	fmt.Printf("  Files:      %d (%d bad entries)\n", sum.Files, sum.ParseErrors)
	fmt.Printf("  Entries:    %s\n", cli.FormatNumber(int64(sum.Entries)))
	fmt.Printf("  Hours:      %s\n", cli.FormatHours(sum.TotalHours))
	fmt.Printf("  Invoiced:   %.2f\n", sum.TotalInvoiced)
	fmt.Printf("  Util:       %s\n", cli.FormatPercent(sum.Utilization))
	fmt.Printf("  Memo:       %d results, %d hits, %d misses, %d evicted\n",
		status.Memo.Entries, status.Memo.Hits, status.Memo.Misses, status.Memo.Evictions)
	if status.LastError != "" {
		fmt.Printf("  Last error: %s\n", status.LastError)
	}
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	st, ok := liveServer(flagServeStateFile)
	if !ok {
		return errors.New("server is not running")
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("finding pid %d: %w", st.PID, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling pid %d: %w", st.PID, err)
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(8 * time.Second)
	for {
		select {
		case <-ticker.C:
			if !alive(st.PID) {
				_ = os.Remove(flagServeStateFile)
				fmt.Printf("  Stopped timeq server (pid %d)\n", st.PID)
				return nil
			}
		case <-timeout:
			return fmt.Errorf("server (pid %d) did not exit in time", st.PID)
		}
	}
}

// liveServer reads the state file and reports whether its process is
// still alive. Stale files are removed.
func liveServer(path string) (serverState, bool) {
	st, err := readServerState(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Debug("unreadable server state", "path", path, "err", err)
		}
		return st, false
	}
	if !alive(st.PID) {
		_ = os.Remove(path)
		return st, false
	}
	return st, true
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func shortVersion(v string) string {
	switch {
	case v == "":
		return "pending"
	case len(v) > 12:
		return v[:12]
	}
	return v
}

func writeServerState(path string, st serverState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readServerState(path string) (serverState, error) {
	var st serverState
	//nolint:gosec // state path comes from the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}
