package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	userOptionFlag    = "-u"
	stateOptionFlag   = "--state"
	runningStateValue = "RUNNING"
)

// Inspector owns the authoritative job and node snapshots and the query specs
// used to fetch them. It is shared between the rendering loop and the Poller;
// every mutable field lives behind mu. Refreshes build the new snapshot
// entirely off to the side and publish it with a single swap under the lock,
// so a reader always sees either the fully-old or fully-new snapshot.
type Inspector struct {
	runner Runner
	log    *zap.Logger
	user   string

	cancelCommand string

	mu         sync.Mutex
	jobSpec    QuerySpec
	nodeSpec   QuerySpec
	detailSpec QuerySpec
	jobs       Snapshot
	nodes      Snapshot
	jobsAt     time.Time
	nodesAt    time.Time
	lastErr    error
}

// NewInspector wires an Inspector from the configuration surface. Spec
// validation (exactly one format entry per query) happens here, never at
// refresh time.
func NewInspector(cfg *Config, runner Runner, log *zap.Logger) (*Inspector, error) {
	if log == nil {
		log = zap.NewNop()
	}

	jobSpec, err := NewQuerySpec(cfg.Squeue.Command, cfg.Squeue.Options, cfg.Squeue.Format)
	if err != nil {
		return nil, err
	}
	nodeSpec, err := NewQuerySpec(cfg.Sinfo.Command, cfg.Sinfo.Options, cfg.Sinfo.Format)
	if err != nil {
		return nil, err
	}
	detailSpec, err := NewQuerySpec(cfg.Detail.Command, cfg.Detail.Options, cfg.Detail.Format)
	if err != nil {
		return nil, err
	}
	if cfg.CancelCommand == "" {
		return nil, &ConfigError{Reason: "cancel command is empty"}
	}

	return &Inspector{
		runner:        runner,
		log:           log,
		user:          cfg.User,
		cancelCommand: cfg.CancelCommand,
		jobSpec:       jobSpec,
		nodeSpec:      nodeSpec,
		detailSpec:    detailSpec,
	}, nil
}

// query runs one spec'd command and parses its stdout. The lock is never held
// across the external call.
func (ins *Inspector) query(ctx context.Context, argv []string) (Snapshot, error) {
	result, err := ins.runner.Run(ctx, argv...)
	if err != nil {
		return Snapshot{}, &QueryError{Command: argv[0], Err: err}
	}
	if !validUTF8(result.Stdout) {
		return Snapshot{}, &QueryError{Command: argv[0], Err: errors.New("output is not valid UTF-8")}
	}
	return parseTable(string(result.Stdout)), nil
}

// RefreshJobs fetches and atomically replaces the job snapshot. On failure
// the previous snapshot stays in place and the error is returned to whoever
// triggered this cycle; there is no retry here.
func (ins *Inspector) RefreshJobs(ctx context.Context) error {
	ins.mu.Lock()
	argv := ins.jobSpec.Args()
	ins.mu.Unlock()

	snap, err := ins.query(ctx, argv)

	ins.mu.Lock()
	defer ins.mu.Unlock()
	if err != nil {
		ins.lastErr = err
		return err
	}
	ins.jobs = snap
	ins.jobsAt = time.Now()
	ins.lastErr = nil
	return nil
}

// RefreshNodes fetches and atomically replaces the node/partition snapshot.
func (ins *Inspector) RefreshNodes(ctx context.Context) error {
	ins.mu.Lock()
	argv := ins.nodeSpec.Args()
	ins.mu.Unlock()

	snap, err := ins.query(ctx, argv)

	ins.mu.Lock()
	defer ins.mu.Unlock()
	if err != nil {
		ins.lastErr = err
		return err
	}
	ins.nodes = snap
	ins.nodesAt = time.Now()
	ins.lastErr = nil
	return nil
}

// Jobs returns the current job snapshot and its fetch time. The snapshot is
// immutable; callers read it lock-free after this copy.
func (ins *Inspector) Jobs() (Snapshot, time.Time) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.jobs, ins.jobsAt
}

// Nodes returns the current node snapshot and its fetch time.
func (ins *Inspector) Nodes() (Snapshot, time.Time) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.nodes, ins.nodesAt
}

// LastError returns the error from the most recent refresh, or nil after a
// successful one. Lets the UI surface background poll failures.
func (ins *Inspector) LastError() error {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.lastErr
}

// JobDetail fetches the richer single-job view, returning the record and the
// header that fixes its column order. A response with no rows means the job
// is gone (finished or purged) and yields a NotFoundError.
func (ins *Inspector) JobDetail(ctx context.Context, jobID string) (Record, []string, error) {
	ins.mu.Lock()
	spec := ins.detailSpec.clone()
	ins.mu.Unlock()

	spec.Options.Set("-j", jobID)
	snap, err := ins.query(ctx, spec.Args())
	if err != nil {
		return Record{}, nil, err
	}
	if len(snap.Rows) == 0 {
		return Record{}, nil, &NotFoundError{JobID: jobID}
	}
	return snap.Rows[0], snap.Header, nil
}

// CancelResult reports one cancel attempt. Slurm's scancel prints nothing on
// success, so success is an empty stderr; the exit status is deliberately
// ignored.
type CancelResult struct {
	JobID  string
	Stderr string
}

func (r CancelResult) OK() bool { return r.Stderr == "" }

// CancelJob asks the scheduler to cancel one job. The returned error is only
// for commands that could not run at all.
func (ins *Inspector) CancelJob(ctx context.Context, jobID string) (CancelResult, error) {
	result, err := ins.runner.Run(ctx, ins.cancelCommand, jobID)
	if err != nil {
		return CancelResult{}, err
	}
	stderr := strings.TrimSpace(string(result.Stderr))
	if stderr != "" {
		ins.log.Warn("cancel rejected", zap.String("job", jobID), zap.String("stderr", stderr))
	}
	return CancelResult{JobID: jobID, Stderr: stderr}, nil
}

// ToggleUserFilter adds "-u <user>" to the job query if absent and removes it
// if present. The toggle is a presence test on the option mapping, not a
// boolean flag, and it affects the next refresh, never the current snapshot.
func (ins *Inspector) ToggleUserFilter() {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if ins.jobSpec.Options.Has(userOptionFlag) {
		ins.jobSpec.Options.Delete(userOptionFlag)
	} else {
		ins.jobSpec.Options.Set(userOptionFlag, ins.user)
	}
}

// ToggleRunningFilter adds or removes "--state RUNNING" on the job query.
func (ins *Inspector) ToggleRunningFilter() {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if ins.jobSpec.Options.Has(stateOptionFlag) {
		ins.jobSpec.Options.Delete(stateOptionFlag)
	} else {
		ins.jobSpec.Options.Set(stateOptionFlag, runningStateValue)
	}
}

// UserFilterOn reports whether the mine-only toggle is active.
func (ins *Inspector) UserFilterOn() bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.jobSpec.Options.Has(userOptionFlag)
}

// RunningFilterOn reports whether the running-only toggle is active.
func (ins *Inspector) RunningFilterOn() bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.jobSpec.Options.Has(stateOptionFlag)
}

// Poller refreshes the job snapshot on a fixed interval from its own
// goroutine. A failed refresh is logged and retried on the next tick, bounded
// by the interval, so the loop never spins on errors and never dies.
type Poller struct {
	inspector *Inspector
	interval  time.Duration
	log       *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewPoller(inspector *Inspector, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		inspector: inspector,
		interval:  interval,
		log:       log,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the polling goroutine.
func (p *Poller) Start() {
	go p.loop()
}

func (p *Poller) loop() {
	defer close(p.done)
	for {
		if err := p.inspector.RefreshJobs(context.Background()); err != nil {
			p.log.Warn("background refresh failed", zap.Error(err))
		}
		select {
		case <-p.stop:
			return
		case <-time.After(p.interval):
		}
	}
}

// Stop signals the loop and waits for it to return. The stop signal is
// observed within one interval; an in-flight query is allowed to finish
// naturally rather than being killed.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}
