package executor

import (
	"bufio"
	"context"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ShellExecutor runs the configured erase command as a child process and
// streams its combined output line by line. Context cancellation kills the
// process group.
type ShellExecutor struct {
	command string
	args    []string
}

var _ Executor = (*ShellExecutor)(nil)

func NewShellExecutor(command string, args ...string) *ShellExecutor {
	return &ShellExecutor{command: command, args: args}
}

func (e *ShellExecutor) Run(ctx context.Context, jobID uuid.UUID, target string) (<-chan Event, error) {
	args := append(append([]string{}, e.args...), target)
	cmd := exec.CommandContext(ctx, e.command, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "attaching stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "attaching stderr")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting erase command %q", e.command)
	}

	zap.S().Named("executor").Infow("erase command started", "job_id", jobID, "target", target, "pid", cmd.Process.Pid)

	out := make(chan Event, 64)
	lines := make(chan string, 64)

	var readers sync.WaitGroup
	readers.Add(2)
	scan := func(r *bufio.Scanner) {
		defer readers.Done()
		for r.Scan() {
			lines <- r.Text()
		}
	}
	go scan(bufio.NewScanner(stdout))
	go scan(bufio.NewScanner(stderr))

	go func() {
		readers.Wait()
		close(lines)
	}()

	go func() {
		defer close(out)
		for line := range lines {
			out <- Event{Line: line}
		}

		exitCode := 0
		if err := cmd.Wait(); err != nil {
			exitCode = -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}
		}
		out <- Event{Exited: true, ExitCode: exitCode}
	}()

	return out, nil
}
