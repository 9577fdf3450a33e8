package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long a killed command may keep its pipes open
const waitDelay = 2 * time.Second

// maxStderr is how much of stderr is kept for error messages
const maxStderr = 512

// run executes spec with stdin and returns its stdout
func run(ctx context.Context, spec Spec, stdin []byte, env ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.WaitDelay = waitDelay
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with status %d: %s", spec.Name, exitErr.ExitCode(), tail(stderr.String()))
		}
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	return stdout.Bytes(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	return s
}
