package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andersonfelipev/aios-core/internal/backup"
	"github.com/andersonfelipev/aios-core/internal/config"
	"github.com/andersonfelipev/aios-core/internal/fetch"
	"github.com/andersonfelipev/aios-core/internal/platform"
	"github.com/andersonfelipev/aios-core/internal/sync"
)

// ConfigFileName is the configuration document's fixed location inside
// the installed tree.
const ConfigFileName = "core-config.yaml"

// DefaultKeepBackups is how many old backups survive pruning when the
// caller does not say otherwise.
const DefaultKeepBackups = 5

// Precondition errors: fatal, reported before any mutation.
var (
	ErrNotInstalled  = errors.New("no installed component tree found")
	ErrMissingConfig = errors.New("installed tree has no configuration document")
	ErrNoRepository  = errors.New("no target repository specified")
	ErrNoBranch      = errors.New("no target branch specified")
)

// PreconditionError wraps a failed preflight check. Nothing has been
// mutated when this is returned.
type PreconditionError struct {
	Err error
}

// Error returns the error message.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// State identifies a step of the update run.
type State int

const (
	StateIdle State = iota
	StatePreflight
	StateFetch
	StatePlan
	StateReport
	StateBackup
	StateApply
	StateCleanup
	StateDone
	StateFailed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreflight:
		return "preflight"
	case StateFetch:
		return "fetch"
	case StatePlan:
		return "plan"
	case StateReport:
		return "report"
	case StateBackup:
		return "backup"
	case StateApply:
		return "apply"
	case StateCleanup:
		return "cleanup"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options is the explicit context for one update run. There is no
// process-global state: every run carries its own installed-tree path,
// target ref, and mode flags, so independent runs and tests never
// share anything.
type Options struct {
	// Dir is the installed tree path (e.g. "./.aios-core").
	Dir string

	// Repo is the remote repository identifier; Branch the ref to fetch.
	Repo   string
	Branch string

	// Force skips the merge and replaces the config wholesale with the
	// incoming document.
	Force bool

	// DryRun stops after planning and reports without mutating anything.
	DryRun bool

	// BackupPolicy decides what happens to the backup after success.
	BackupPolicy backup.Policy

	// KeepBackups bounds how many old backups survive pruning.
	// Zero means DefaultKeepBackups.
	KeepBackups int
}

// Plan is the computed update, immutable once built. It is consumed
// either by Apply or by the dry-run report.
type Plan struct {
	Changes      []sync.ChangeRecord
	MergedConfig *config.Tree
	FromVersion  string
	ToVersion    string
}

// Result describes how a run ended.
type Result struct {
	State      State
	Plan       *Plan
	BackupPath string // "" when no backup was taken
	Platform   *platform.Info
	DryRun     bool
}

// Orchestrator drives one update run through its states:
//
//	Idle → Preflight → Fetch → Plan → (dry-run? Report) →
//	Backup → Apply → Cleanup → Done
//
// Any step's failure moves to Failed and skips everything except
// Cleanup, which always runs so the fetch workspace never leaks.
// There is no retry logic: a failed run is re-invoked from Idle by the
// caller. Concurrent runs against the same installed tree are
// undefined behavior and must be serialized externally.
type Orchestrator struct {
	opts     Options
	fetcher  fetch.Fetcher
	detector platform.Detector
	parser   *config.Parser
	gen      *config.Generator
	logger   config.Logger
}

// New creates an orchestrator for the given run options.
func New(opts Options, fetcher fetch.Fetcher) (*Orchestrator, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("Dir is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.KeepBackups == 0 {
		opts.KeepBackups = DefaultKeepBackups
	}

	return &Orchestrator{
		opts:     opts,
		fetcher:  fetcher,
		detector: platform.NewDetector(),
		parser:   config.NewParser(),
		gen:      config.NewGenerator(),
		logger:   noopLogger{},
	}, nil
}

// WithLogger sets the logger for run progress and parser warnings.
func (o *Orchestrator) WithLogger(logger config.Logger) *Orchestrator {
	if logger != nil {
		o.logger = logger
		o.parser = o.parser.WithLogger(logger)
	}
	return o
}

// WithDetector replaces the platform detector. Used by tests.
func (o *Orchestrator) WithDetector(d platform.Detector) *Orchestrator {
	if d != nil {
		o.detector = d
	}
	return o
}

// Run executes the state machine. On failure the returned Result
// still carries whatever was learned (state reached, backup path for
// manual recovery) alongside the error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	result := &Result{State: StateIdle, DryRun: o.opts.DryRun}

	// Preflight
	o.transition(result, StatePreflight)
	if err := o.preflight(ctx, result); err != nil {
		result.State = StateFailed
		return result, err
	}

	// Fetch
	o.transition(result, StateFetch)
	workspace, err := o.fetcher.Fetch(ctx, fetch.Target{Repo: o.opts.Repo, Branch: o.opts.Branch})
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	// Cleanup always runs, success or failure. It only logs the step:
	// result.State keeps the terminal state the run ended in.
	defer func() {
		o.logger.Debug("state transition", "to", StateCleanup.String())
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			o.logger.Warn("could not remove fetch workspace", "path", workspace, "error", rmErr)
		}
	}()

	// Plan
	o.transition(result, StatePlan)
	plan, err := o.buildPlan(workspace)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.Plan = plan

	// Report (dry-run terminal state): no mutation happens past this
	// point unless we are really applying.
	if o.opts.DryRun {
		o.transition(result, StateReport)
		return result, nil
	}

	// Backup
	o.transition(result, StateBackup)
	snap, err := backup.Snapshot(o.opts.Dir)
	if err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("backup installed tree: %w", err)
	}
	result.BackupPath = snap.Path

	// Apply
	o.transition(result, StateApply)
	if err := o.apply(workspace, plan); err != nil {
		result.State = StateFailed
		if finErr := backup.Finalize(snap, backup.OutcomeFailure, o.opts.BackupPolicy); finErr != nil {
			o.logger.Warn("backup finalize failed", "error", finErr)
		}
		return result, err
	}

	// Backup lifecycle + retention, then Done.
	if err := backup.Finalize(snap, backup.OutcomeSuccess, o.opts.BackupPolicy); err != nil {
		o.logger.Warn("backup finalize failed", "error", err)
	}
	if o.opts.BackupPolicy == backup.PolicyDiscard {
		result.BackupPath = ""
	}
	parent := filepath.Dir(filepath.Clean(o.opts.Dir))
	if _, err := backup.Prune(parent, filepath.Base(filepath.Clean(o.opts.Dir)), o.opts.KeepBackups); err != nil {
		o.logger.Warn("backup pruning failed", "error", err)
	}

	result.State = StateDone
	return result, nil
}

// preflight confirms an installed tree exists and the target is
// resolvable. It performs no mutation.
func (o *Orchestrator) preflight(ctx context.Context, result *Result) error {
	info, err := os.Stat(o.opts.Dir)
	if err != nil || !info.IsDir() {
		return &PreconditionError{Err: ErrNotInstalled}
	}
	if _, err := os.Stat(filepath.Join(o.opts.Dir, ConfigFileName)); err != nil {
		return &PreconditionError{Err: ErrMissingConfig}
	}
	if o.opts.Repo == "" {
		return &PreconditionError{Err: ErrNoRepository}
	}
	if o.opts.Branch == "" {
		return &PreconditionError{Err: ErrNoBranch}
	}

	// Platform detection feeds the report; its failure must not block
	// an upgrade.
	if pinfo, err := o.detector.Detect(ctx); err == nil {
		result.Platform = pinfo
	} else {
		o.logger.Warn("platform detection failed", "error", err)
	}

	return nil
}

// buildPlan parses both configuration documents, merges them (unless
// Force), and simulates the synchronization. Nothing is mutated.
func (o *Orchestrator) buildPlan(workspace string) (*Plan, error) {
	currentDoc, err := os.ReadFile(filepath.Join(o.opts.Dir, ConfigFileName))
	if err != nil {
		return nil, fmt.Errorf("read installed config: %w", err)
	}
	current := o.parser.Parse(string(currentDoc)).Tree

	incoming := config.NewTree()
	incomingDoc, err := os.ReadFile(filepath.Join(workspace, ConfigFileName))
	if err == nil {
		incoming = o.parser.Parse(string(incomingDoc)).Tree
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read incoming config: %w", err)
	}

	// Under Force the plan's tree is the incoming one for display
	// purposes only; apply keeps the incoming document itself.
	merged := config.Merge(current, incoming)
	if o.opts.Force {
		merged = incoming.Clone()
	}

	changes, err := sync.Plan(workspace, o.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("simulate sync: %w", err)
	}

	return &Plan{
		Changes:      changes,
		MergedConfig: merged,
		FromVersion:  versionOrUnknown(current),
		ToVersion:    versionOrUnknown(incoming),
	}, nil
}

// apply copies the planned changes into the installed tree and then
// persists the merged config at its fixed location. Failures leave
// already-written files in place; the backup is the recovery point.
//
// Force adopts the incoming document byte for byte. The sync step has
// already placed it, and regenerating from the parsed tree would drop
// anything outside the supported grammar, so no rewrite happens.
func (o *Orchestrator) apply(workspace string, plan *Plan) error {
	if err := sync.Apply(workspace, o.opts.Dir, plan.Changes); err != nil {
		return err
	}
	if o.opts.Force {
		return nil
	}
	return writeConfig(filepath.Join(o.opts.Dir, ConfigFileName), o.gen.Generate(plan.MergedConfig))
}

// writeConfig persists the document atomically.
// Uses write-then-rename pattern for atomicity.
func writeConfig(path, content string) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write temporary config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}

	return nil
}

// transition logs and records a state change.
func (o *Orchestrator) transition(result *Result, next State) {
	o.logger.Debug("state transition", "from", result.State.String(), "to", next.String())
	result.State = next
}

// versionOrUnknown reads the tree's version key with a display fallback.
func versionOrUnknown(tree *config.Tree) string {
	if v := tree.Version(); v != "" {
		return v
	}
	return "unknown"
}

// noopLogger is the default logger used when none is provided.
type noopLogger struct{}

func (noopLogger) Debug(msg string, kv ...interface{}) {}
func (noopLogger) Info(msg string, kv ...interface{})  {}
func (noopLogger) Warn(msg string, kv ...interface{})  {}
func (noopLogger) Error(msg string, kv ...interface{}) {}
