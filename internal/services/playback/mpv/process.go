// Package mpv drives mpv as an out-of-process decode backend over its JSON
// IPC socket. Two profiles exist: a fast one that seeks through the
// container index, and a precise one that pays for exact seeks with speed.
package mpv

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// process wraps an exec.Cmd for one mpv instance.
type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	stderr bytes.Buffer
}

func newProcess(ctx context.Context, binary string, args []string) *process {
	ctx2, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx2, binary, args...)
	return &process{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (p *process) start() error {
	p.cmd.Stderr = &p.stderr
	if err := p.cmd.Start(); err != nil {
		return err
	}
	go func() {
		p.err = p.cmd.Wait()
		close(p.done)
	}()
	return nil
}

// stop cancels the process context, killing mpv if it is still running.
func (p *process) stop() {
	p.cancel()
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) stderrText() string {
	return strings.TrimSpace(p.stderr.String())
}
