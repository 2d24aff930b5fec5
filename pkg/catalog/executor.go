package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/cmdpanel/pkg/debug"
)

// maxOutput bounds the captured output of a shell command.
const maxOutput = 64 * 1024

// Result describes one command execution.
type Result struct {
	ID       string
	ExitCode int
	Output   string
	Duration time.Duration
	Err      error
}

// Success reports whether the command completed without error.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// LastLine returns the last non-empty line of output, for status notices.
func (r Result) LastLine() string {
	lines := strings.Split(strings.TrimRight(r.Output, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}

// Execute runs the command with the given id and captures its output.
func (c *Catalog) Execute(ctx context.Context, id string) Result {
	start := time.Now()
	res := Result{ID: id}

	c.mu.RLock()
	b, isBuiltin := c.builtins[id]
	d, isShell := c.commands[id]
	c.mu.RUnlock()

	switch {
	case isBuiltin:
		if b.fn != nil {
			res.Err = b.fn(ctx)
		}
	case isShell:
		cmd, cancel := c.command(ctx, d)
		defer cancel()
		out := &limitedBuffer{max: maxOutput}
		cmd.Stdout = out
		cmd.Stderr = out
		err := cmd.Run()
		res.Output = out.String()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				res.ExitCode = exitErr.ExitCode()
				res.Err = fmt.Errorf("%s exited with status %d", id, res.ExitCode)
			} else {
				res.ExitCode = -1
				res.Err = fmt.Errorf("running %s: %w", id, err)
			}
		}
	default:
		res.ExitCode = -1
		res.Err = fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}

	res.Duration = time.Since(start)
	if res.Err != nil && res.ExitCode == 0 {
		res.ExitCode = -1
	}
	debug.Log("catalog: executed %s in %v (exit %d, err %v)", id, res.Duration, res.ExitCode, res.Err)
	return res
}

// ExecuteCommandByID runs a command and reports whether it succeeded.
func (c *Catalog) ExecuteCommandByID(ctx context.Context, id string) bool {
	return c.Execute(ctx, id).Success()
}

// Command builds an unstarted process for an interactive catalog entry. The
// caller owns the terminal hand-off (e.g. tea.ExecProcess) and must call the
// returned cancel function when the process exits.
func (c *Catalog) Command(ctx context.Context, id string) (*exec.Cmd, context.CancelFunc, error) {
	c.mu.RLock()
	d, ok := c.commands[id]
	c.mu.RUnlock()
	if !ok {
		return nil, func() {}, fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	cmd, cancel := c.command(ctx, d)
	return cmd, cancel, nil
}

func (c *Catalog) command(ctx context.Context, d Descriptor) (*exec.Cmd, context.CancelFunc) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var cancel context.CancelFunc
	if d.Interactive {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	cmd := exec.CommandContext(ctx, c.shell, "-c", d.Run)
	cmd.Dir = d.Dir
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(), "CMDPANEL_COMMAND_ID="+d.ID)
	for k, v := range d.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	return cmd, cancel
}

// limitedBuffer keeps at most max bytes and drops the rest.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
