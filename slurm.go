package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// jobIDColumn is the identity column printed by squeue for both the list and
// detail format strings. Job identity is the string form of the numeric ID.
const jobIDColumn = "JOBID"

// ExecError reports that an external command could not be located or started.
// A command that starts but exits nonzero is not an ExecError; callers get the
// exit status and stderr instead.
type ExecError struct {
	Name string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("cannot run %s: %v", e.Name, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ConfigError reports a malformed query configuration. It is raised when a
// QuerySpec is constructed, never at call time.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Reason }

// QueryError reports that a refresh produced no usable snapshot. The previous
// snapshot remains authoritative.
type QueryError struct {
	Command string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Command, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NotFoundError reports a detail query that returned no rows, typically a job
// that already left the queue.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string { return "job " + e.JobID + " not found" }

// CmdResult captures one external command invocation.
type CmdResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner invokes external commands. The Inspector talks to Slurm exclusively
// through this interface so tests can substitute canned output.
type Runner interface {
	Run(ctx context.Context, argv ...string) (CmdResult, error)
}

// ExecRunner runs commands via os/exec. One process is spawned and waited on
// per call. There is no timeout: a hung query blocks its refresh cycle, which
// is acceptable because refreshes are sequential within one poller.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, argv ...string) (CmdResult, error) {
	if len(argv) == 0 {
		return CmdResult{}, &ExecError{Name: "(empty)", Err: errors.New("empty argv")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CmdResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Nonzero exit is not an error at this layer; callers inspect
		// ExitCode and Stderr themselves.
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return CmdResult{}, &ExecError{Name: argv[0], Err: err}
	}
	return result, nil
}

// Record is one parsed output row: header column -> value. A column that had
// no token in the row is absent, which is distinct from an empty string.
type Record struct {
	fields map[string]string
}

func newRecord(header, tokens []string) Record {
	n := len(tokens)
	if len(header) < n {
		n = len(header)
	}
	fields := make(map[string]string, n)
	for i := 0; i < n; i++ {
		fields[header[i]] = tokens[i]
	}
	return Record{fields: fields}
}

// Get returns the value for a header column. ok is false when the column was
// missing from the row (short row or wrong header).
func (r Record) Get(key string) (value string, ok bool) {
	value, ok = r.fields[key]
	return
}

// ID returns the job identity, or "" for rows without a JOBID column.
func (r Record) ID() string {
	return r.fields[jobIDColumn]
}

// Len returns the number of populated columns.
func (r Record) Len() int { return len(r.fields) }

// Matches reports whether needle is a substring of at least one field value,
// checked across the given header columns. Absent fields never match. An
// empty needle matches everything.
func (r Record) Matches(header []string, needle string) bool {
	if needle == "" {
		return true
	}
	for _, h := range header {
		if v, ok := r.fields[h]; ok && strings.Contains(v, needle) {
			return true
		}
	}
	return false
}

// Snapshot is one fully parsed query response: the header token list and the
// rows keyed against it. A snapshot is never mutated after it is built;
// refreshes replace it wholesale.
type Snapshot struct {
	Rows   []Record
	Header []string
}

// parseTable converts tabular command output into a Snapshot. The first line
// is whitespace-tokenized into the header; every following non-empty line is
// tokenized and zipped positionally with the header. The trailing empty line
// produced by the command's final newline is discarded. Rows with fewer
// tokens than the header leave the trailing columns absent.
func parseTable(output string) Snapshot {
	lines := strings.Split(output, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) == 0 {
		return Snapshot{}
	}

	snap := Snapshot{Header: strings.Fields(lines[0])}
	for _, line := range lines[1:] {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		snap.Rows = append(snap.Rows, newRecord(snap.Header, tokens))
	}
	return snap
}

// Options is an insertion-ordered flag/value mapping. Option flags are
// emitted as "flag value" token pairs in the order they were first set.
type Options struct {
	flags  []string
	values map[string]string
}

func NewOptions() *Options {
	return &Options{values: make(map[string]string)}
}

// Set inserts or updates a flag. Updating keeps the original position.
func (o *Options) Set(flag, value string) {
	if o.values == nil {
		o.values = make(map[string]string)
	}
	if _, ok := o.values[flag]; !ok {
		o.flags = append(o.flags, flag)
	}
	o.values[flag] = value
}

// Delete removes a flag. Deleting an absent flag is a no-op.
func (o *Options) Delete(flag string) {
	if _, ok := o.values[flag]; !ok {
		return
	}
	delete(o.values, flag)
	for i, f := range o.flags {
		if f == flag {
			o.flags = append(o.flags[:i], o.flags[i+1:]...)
			break
		}
	}
}

func (o *Options) Has(flag string) bool {
	_, ok := o.values[flag]
	return ok
}

func (o *Options) Get(flag string) (string, bool) {
	v, ok := o.values[flag]
	return v, ok
}

func (o *Options) Len() int { return len(o.flags) }

// Args appends "flag value" pairs in insertion order.
func (o *Options) Args(argv []string) []string {
	for _, f := range o.flags {
		argv = append(argv, f, o.values[f])
	}
	return argv
}

// Clone returns an independent copy.
func (o *Options) Clone() *Options {
	c := &Options{
		flags:  append([]string(nil), o.flags...),
		values: make(map[string]string, len(o.values)),
	}
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

// UnmarshalYAML decodes a YAML mapping while preserving key order, which the
// generic map decoding would lose.
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of option flags", node.Line)
	}
	o.flags = nil
	o.values = make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var flag, value string
		if err := node.Content[i].Decode(&flag); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		o.Set(flag, value)
	}
	return nil
}

// QuerySpec describes one Slurm query: the command, its ordered options, and
// exactly one formatting option pair that fixes the output columns.
type QuerySpec struct {
	Command     string
	Options     *Options
	FormatFlag  string
	FormatValue string
}

// NewQuerySpec validates and builds a QuerySpec. The format mapping must hold
// exactly one entry; anything else is a ConfigError.
func NewQuerySpec(command string, options, format *Options) (QuerySpec, error) {
	if command == "" {
		return QuerySpec{}, &ConfigError{Reason: "query command is empty"}
	}
	if format == nil || format.Len() != 1 {
		n := 0
		if format != nil {
			n = format.Len()
		}
		return QuerySpec{}, &ConfigError{
			Reason: fmt.Sprintf("%s format mapping must have exactly one entry, got %d", command, n),
		}
	}
	if options == nil {
		options = NewOptions()
	}
	spec := QuerySpec{Command: command, Options: options}
	spec.FormatFlag = format.flags[0]
	spec.FormatValue = format.values[spec.FormatFlag]
	return spec, nil
}

// Args builds the argv: command, option pairs in insertion order, then the
// format pair last.
func (s QuerySpec) Args() []string {
	argv := make([]string, 0, 3+2*s.Options.Len())
	argv = append(argv, s.Command)
	argv = s.Options.Args(argv)
	return append(argv, s.FormatFlag, s.FormatValue)
}

func (s QuerySpec) clone() QuerySpec {
	c := s
	c.Options = s.Options.Clone()
	return c
}

var statusAliases = map[string]string{
	"RUNNING":       "R",
	"COMPLETING":    "CG",
	"CONFIGURING":   "CF",
	"PENDING":       "PD",
	"PREEMPTED":     "PR",
	"REQUEUED":      "RQ",
	"REQUEUE_HOLD":  "RH",
	"REQUEUE_FED":   "RF",
	"RESIZING":      "RS",
	"SUSPENDED":     "S",
	"STOPPED":       "ST",
	"COMPLETED":     "CD",
	"CANCELLED":     "CA",
	"FAILED":        "F",
	"TIMEOUT":       "TO",
	"NODE_FAIL":     "NF",
	"OUT_OF_MEMORY": "OOM",
}

// StateCode converts a full Slurm state to its short code ("RUNNING" -> "R").
// Unknown states pass through unchanged.
func StateCode(status string) string {
	text := strings.ToUpper(strings.TrimSpace(status))
	if text == "" {
		return ""
	}
	text = strings.TrimRight(text, "*+")

	if alias, ok := statusAliases[text]; ok {
		return alias
	}

	// "CANCELLED by 4840" and friends: match on the first word.
	parts := strings.Fields(text)
	if len(parts) > 1 {
		if alias, ok := statusAliases[parts[0]]; ok {
			return alias
		}
	}

	return text
}

// CurrentUser resolves the local username for the default "-u" toggle value.
// Called only during startup wiring; the Inspector itself never does ambient
// lookups.
func CurrentUser() string {
	u, err := user.Current()
	if err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// TailFile returns the last n lines of a file via the external tail command.
func TailFile(ctx context.Context, runner Runner, n int, path string) ([]string, error) {
	if path == "" {
		return nil, errors.New("no log path")
	}
	result, err := runner.Run(ctx, "tail", "-n", strconv.Itoa(n), path)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		msg := strings.TrimSpace(string(result.Stderr))
		if msg == "" {
			msg = fmt.Sprintf("tail exited with status %d", result.ExitCode)
		}
		return nil, errors.New(msg)
	}
	return splitTailOutput(result.Stdout), nil
}

func splitTailOutput(out []byte) []string {
	s := strings.TrimRight(string(out), "\r\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}

// SlurmCheck verifies that the job query command can be started at all. Run
// once before the dashboard comes up; the core assumes a reachable scheduler
// afterwards and does not re-check per call.
func SlurmCheck(ctx context.Context, runner Runner, command string) error {
	if _, err := runner.Run(ctx, command); err != nil {
		return fmt.Errorf("unable to communicate with Slurm services, check cluster status: %w", err)
	}
	return nil
}

func validUTF8(b []byte) bool { return utf8.Valid(b) }
