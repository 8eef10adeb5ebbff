package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"fileconv/logger"
)

// Runner executes an external program in dir. Implementations must stop the
// program when ctx is done.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs real processes
type ExecRunner struct {
	// WaitDelay bounds how long to wait for output pipes after the process is killed
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	logger.Debugf("%s %s finished in %s", name, strings.Join(args, " "), time.Since(start).Round(time.Millisecond))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(out.String(), 512))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return "..." + s[len(s)-n:]
	}
	return s
}

// withWorkDir runs fn inside a fresh private directory and removes it on every path
func withWorkDir(fn func(dir string) ([]byte, error)) ([]byte, error) {
	dir, err := os.MkdirTemp("", "fileconv-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Errorf("Failed to remove work dir %s: %v", dir, err)
		}
	}()
	return fn(dir)
}

// runWithTimeout applies the configured render timeout to one tool invocation
func (c *Converter) runWithTimeout(ctx context.Context, dir, name string, args ...string) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	err := c.runner.Run(ctx, dir, name, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", name, c.cfg.Timeout)
	}
	return err
}
