package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// fakeRunner substitutes canned output for external commands and records every
// argv it sees. Safe for concurrent use.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(argv []string) (CmdResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, argv ...string) (CmdResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), argv...))
	f.mu.Unlock()
	if f.run != nil {
		return f.run(argv)
	}
	return CmdResult{}, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func TestParseTable(t *testing.T) {
	out := "JOBID USER STATE\n101 alice RUNNING\n102 bob PENDING\n"
	snap := parseTable(out)

	wantHeader := []string{"JOBID", "USER", "STATE"}
	if diff := cmp.Diff(wantHeader, snap.Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(snap.Rows))
	}
	if snap.Rows[0].ID() != "101" || snap.Rows[1].ID() != "102" {
		t.Fatalf("unexpected IDs: %q, %q", snap.Rows[0].ID(), snap.Rows[1].ID())
	}
	if state, ok := snap.Rows[1].Get("STATE"); !ok || state != "PENDING" {
		t.Fatalf("expected STATE=PENDING, got %q (ok=%v)", state, ok)
	}
}

func TestParseTableBlankLines(t *testing.T) {
	// Trailing newline plus an interior blank line; neither produces a row.
	out := "JOBID USER STATE\n101 alice RUNNING\n\n102 bob PENDING\n\n"
	snap := parseTable(out)
	if len(snap.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(snap.Rows))
	}
}

func TestParseTableShortRow(t *testing.T) {
	out := "JOBID USER STATE\n101 alice\n"
	snap := parseTable(out)
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(snap.Rows))
	}

	rec := snap.Rows[0]
	if rec.Len() != 2 {
		t.Fatalf("expected 2 populated columns, got %d", rec.Len())
	}
	// The missing column is absent, not an empty string.
	if v, ok := rec.Get("STATE"); ok {
		t.Fatalf("expected STATE to be absent, got %q", v)
	}
	if rec.Matches(snap.Header, "RUNNING") {
		t.Fatal("absent field must never match a filter")
	}
}

func TestParseTableEmpty(t *testing.T) {
	for _, out := range []string{"", "\n"} {
		snap := parseTable(out)
		if len(snap.Header) != 0 || len(snap.Rows) != 0 {
			t.Fatalf("parseTable(%q): expected empty snapshot, got %+v", out, snap)
		}
	}
}

func TestRecordMatches(t *testing.T) {
	snap := parseTable("JOBID USER STATE\n101 alice RUNNING\n")
	rec := snap.Rows[0]

	if !rec.Matches(snap.Header, "") {
		t.Fatal("empty needle must match everything")
	}
	if !rec.Matches(snap.Header, "lic") {
		t.Fatal("substring in any column must match")
	}
	// Case-sensitive.
	if rec.Matches(snap.Header, "Alice") {
		t.Fatal("matching must be case-sensitive")
	}
}

func TestOptionsOrder(t *testing.T) {
	o := NewOptions()
	o.Set("-a", "1")
	o.Set("-b", "2")
	o.Set("-c", "3")
	o.Set("-b", "20") // update keeps position

	got := o.Args(nil)
	want := []string{"-a", "1", "-b", "20", "-c", "3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	o.Delete("-a")
	o.Delete("-zz") // absent, no-op
	got = o.Args(nil)
	want = []string{"-b", "20", "-c", "3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args after delete (-want +got):\n%s", diff)
	}
}

func TestOptionsClone(t *testing.T) {
	o := NewOptions()
	o.Set("-u", "alice")
	c := o.Clone()
	c.Set("-u", "bob")
	c.Set("--state", "RUNNING")

	if v, _ := o.Get("-u"); v != "alice" {
		t.Fatalf("clone mutation leaked into original: %q", v)
	}
	if o.Has("--state") {
		t.Fatal("clone insertion leaked into original")
	}
}

func TestOptionsUnmarshalYAML(t *testing.T) {
	var got struct {
		Options *Options `yaml:"options"`
	}
	src := "options:\n  \"-p\": gpu\n  \"-u\": alice\n  \"--sort\": \"+i\"\n"
	if err := yaml.Unmarshal([]byte(src), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"-p", "gpu", "-u", "alice", "--sort", "+i"}
	if diff := cmp.Diff(want, got.Options.Args(nil)); diff != "" {
		t.Fatalf("yaml option order not preserved (-want +got):\n%s", diff)
	}
}

func TestQuerySpecArgs(t *testing.T) {
	opts := NewOptions()
	opts.Set("-u", "alice")
	opts.Set("-p", "gpu")
	format := NewOptions()
	format.Set("-O", "JobId,STATE")

	spec, err := NewQuerySpec("squeue", opts, format)
	if err != nil {
		t.Fatalf("NewQuerySpec: %v", err)
	}

	want := []string{"squeue", "-u", "alice", "-p", "gpu", "-O", "JobId,STATE"}
	if diff := cmp.Diff(want, spec.Args()); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestQuerySpecFormatValidation(t *testing.T) {
	two := NewOptions()
	two.Set("-O", "JobId")
	two.Set("-o", "%i")

	cases := []*Options{nil, NewOptions(), two}
	for _, format := range cases {
		_, err := NewQuerySpec("squeue", NewOptions(), format)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("format=%v: expected ConfigError, got %v", format, err)
		}
	}
}

func TestStateCode(t *testing.T) {
	cases := map[string]string{
		"RUNNING":           "R",
		"running":           "R",
		"PENDING":           "PD",
		"PENDING*":          "PD",
		"COMPLETED":         "CD",
		"CANCELLED":         "CA",
		"CANCELLED by 4840": "CA",
		"OUT_OF_MEMORY":     "OOM",
		"WEIRD_STATE":       "WEIRD_STATE",
		"":                  "",
	}
	for in, want := range cases {
		if got := StateCode(in); got != want {
			t.Fatalf("StateCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTailFile(t *testing.T) {
	runner := &fakeRunner{run: func(argv []string) (CmdResult, error) {
		return CmdResult{Stdout: []byte("line one\nline two\n")}, nil
	}}

	lines, err := TailFile(context.Background(), runner, 200, "/scratch/job.out")
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if diff := cmp.Diff([]string{"line one", "line two"}, lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}

	wantArgv := []string{"tail", "-n", "200", "/scratch/job.out"}
	if diff := cmp.Diff(wantArgv, runner.lastCall()); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestTailFileErrors(t *testing.T) {
	runner := &fakeRunner{run: func(argv []string) (CmdResult, error) {
		return CmdResult{Stderr: []byte("tail: no such file\n"), ExitCode: 1}, nil
	}}
	if _, err := TailFile(context.Background(), runner, 10, "/missing"); err == nil {
		t.Fatal("expected an error for a failed tail")
	}
	if _, err := TailFile(context.Background(), runner, 10, ""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestSplitTailOutput(t *testing.T) {
	if got := splitTailOutput(nil); got != nil {
		t.Fatalf("expected nil for empty output, got %v", got)
	}
	got := splitTailOutput([]byte("a\r\nb\nc\n"))
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSlurmCheck(t *testing.T) {
	ok := &fakeRunner{run: func(argv []string) (CmdResult, error) {
		return CmdResult{ExitCode: 1}, nil // nonzero exit still means reachable
	}}
	if err := SlurmCheck(context.Background(), ok, "squeue"); err != nil {
		t.Fatalf("SlurmCheck: %v", err)
	}

	down := &fakeRunner{run: func(argv []string) (CmdResult, error) {
		return CmdResult{}, &ExecError{Name: "squeue", Err: errors.New("not found")}
	}}
	if err := SlurmCheck(context.Background(), down, "squeue"); err == nil {
		t.Fatal("expected an error when the command cannot start")
	}
}
