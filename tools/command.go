package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// maxCommandOutput caps each captured stream of a subprocess
const maxCommandOutput = 100 * 1024

// CommandOutput is the captured result of a subprocess
type CommandOutput struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
	Command    string `json:"command,omitempty"`
}

// cappedBuffer keeps the first maxCommandOutput bytes and drops the rest
type cappedBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := maxCommandOutput - b.buf.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}

// runCommand runs name with args under ctx. A non-zero exit is reported in
// ReturnCode; the error is set only when the process could not run or ctx
// ended first.
func runCommand(ctx context.Context, dir string, env []string, name string, args ...string) (CommandOutput, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	// children that inherit the pipes must not hold Wait open after a kill
	cmd.WaitDelay = time.Second
	if env != nil {
		cmd.Env = env
	}

	var stdout, stderr cappedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := CommandOutput{Command: strings.Join(append([]string{name}, args...), " ")}
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		out.ReturnCode = exitErr.ExitCode()
	default:
		return out, err
	}
	return out, nil
}
