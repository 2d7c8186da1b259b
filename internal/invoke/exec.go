package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/idanshimon/protect-web/internal/config"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed.
const waitDelay = 2 * time.Second

// run executes the binary with the blueprint path. The invocation marker is
// set only in the child's environment.
func (p *Pipeline) run(ctx context.Context, id, binPath, bpPath string) (Output, error) {
	cmd := exec.CommandContext(ctx, binPath, "--blueprint", bpPath)
	cmd.Env = append(os.Environ(), config.InvocationMarkerEnv+"=true")
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("running protection binary", "invocation_id", id, "binary", binPath, "blueprint", bpPath)
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Output{}, fmt.Errorf("protection interrupted: %w", ctxErr)
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return Output{}, &InvocationError{
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return out, nil
}
