// Package launcher executes catalog commands on behalf of the panel and
// applies the bookkeeping of a successful run.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanderheijden86/cmdpanel/internal/journal"
	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/debug"
	"github.com/vanderheijden86/cmdpanel/pkg/metrics"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
)

// ErrExecutionFailed wraps every failed launch.
var ErrExecutionFailed = errors.New("failed to execute command")

// Executor runs commands. *catalog.Catalog implements it.
type Executor interface {
	catalog.Lookup
	Execute(ctx context.Context, id string) catalog.Result
}

// Journal records launches. *journal.Journal implements it.
type Journal interface {
	Record(e journal.Entry) error
}

// Result is what the panel shows after a launch.
type Result struct {
	ID       string
	Name     string
	Duration time.Duration
	ExitCode int
	Output   string
}

// Launcher ties execution to the registry.
type Launcher struct {
	exec    Executor
	reg     *registry.Registry
	journal Journal
	now     func() time.Time
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithJournal enables launch journaling.
func WithJournal(j Journal) Option {
	return func(l *Launcher) {
		l.journal = j
	}
}

// New returns a launcher executing through exec and recording into reg.
func New(exec Executor, reg *registry.Registry, opts ...Option) *Launcher {
	l := &Launcher{exec: exec, reg: reg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch executes the command with the given id. On success the command
// moves to the front of the recent list and its usage count grows. On
// failure the error wraps ErrExecutionFailed and recent/usage are left alone.
func (l *Launcher) Launch(ctx context.Context, id string) (Result, error) {
	start := l.now()
	return l.Complete(l.Execute(ctx, id), start)
}

// Execute runs the command without touching the registry. Callers that run
// commands off the registry's goroutine pass the result back and call
// Complete there.
func (l *Launcher) Execute(ctx context.Context, id string) catalog.Result {
	return l.exec.Execute(ctx, id)
}

// Complete applies the bookkeeping for a result obtained from Execute.
func (l *Launcher) Complete(res catalog.Result, start time.Time) (Result, error) {
	defer metrics.Timer(metrics.Launch)()
	out := Result{
		ID:       res.ID,
		Name:     registry.DisplayName(model.CommandRef{CommandID: res.ID}, l.exec),
		Duration: res.Duration,
		ExitCode: res.ExitCode,
		Output:   res.Output,
	}
	return out, l.finish(res.ID, start, res.Duration, res.ExitCode, res.Err)
}

// Interactive reports whether id must run with the terminal handed over
// (see catalog.Catalog.Command).
func (l *Launcher) Interactive(id string) bool {
	d, ok := l.exec.FindCommand(id)
	return ok && d.Interactive
}

// Finish applies the bookkeeping for a command that was run outside Launch,
// such as an interactive command executed with the terminal handed over.
func (l *Launcher) Finish(id string, start time.Time, runErr error) (Result, error) {
	d := l.now().Sub(start)
	exitCode := 0
	if runErr != nil {
		exitCode = -1
		var coder interface{ ExitCode() int }
		if errors.As(runErr, &coder) {
			exitCode = coder.ExitCode()
		}
	}
	out := Result{
		ID:       id,
		Name:     registry.DisplayName(model.CommandRef{CommandID: id}, l.exec),
		Duration: d,
		ExitCode: exitCode,
	}
	return out, l.finish(id, start, d, exitCode, runErr)
}

func (l *Launcher) finish(id string, start time.Time, d time.Duration, exitCode int, runErr error) error {
	success := runErr == nil && exitCode == 0

	if l.journal != nil {
		e := journal.Entry{
			CommandID: id,
			StartedAt: start,
			Duration:  d,
			Success:   success,
			ExitCode:  exitCode,
		}
		if runErr != nil {
			e.Error = runErr.Error()
		}
		if err := l.journal.Record(e); err != nil {
			debug.Warn("launcher: journal: %v", err)
		}
	}

	if !success {
		metrics.LaunchFailure.Inc()
		if runErr == nil {
			runErr = fmt.Errorf("exit status %d", exitCode)
		}
		debug.Log("launcher: %s failed: %v", id, runErr)
		return fmt.Errorf("%w: %s: %v", ErrExecutionFailed, id, runErr)
	}

	metrics.LaunchSuccess.Inc()
	l.reg.RecordExecution(id)
	return nil
}
