package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/wehubfusion/modelchain/pkg/model"
)

// DefaultScriptTimeout bounds one script evaluation.
const DefaultScriptTimeout = 250 * time.Millisecond

// ErrScriptTimeout is returned when a script runs past its timeout or its context ends.
var ErrScriptTimeout = errors.New("script execution timeout")

// blockedGlobals are removed from every runtime before the script runs.
var blockedGlobals = []string{"require", "module", "exports", "process", "global", "eval"}

// Script is a compiled JavaScript predicate over an artifact's metadata. The
// script sees the metadata as the global "metadata" and its completion value
// is taken as truthy or falsy, e.g. `metadata.origin === "sap" && metadata.revision > 1`.
type Script struct {
	Source  string
	program *goja.Program
	timeout time.Duration
}

// CompileScript compiles src once; each Eval runs it in a fresh runtime.
func CompileScript(src string, timeout time.Duration) (*Script, error) {
	if src == "" {
		return nil, fmt.Errorf("script is empty")
	}
	prg, err := goja.Compile("filter.js", src, true)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	return &Script{Source: src, program: prg, timeout: timeout}, nil
}

// Eval runs the script against md.
func (s *Script) Eval(ctx context.Context, md model.Metadata) (bool, error) {
	vm := goja.New()
	for _, name := range blockedGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return false, fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	if err := vm.Set("metadata", map[string]any(md)); err != nil {
		return false, fmt.Errorf("failed to set metadata: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ErrScriptTimeout)
		case <-done:
		}
	}()

	v, err := vm.RunProgram(s.program)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return false, ErrScriptTimeout
		}
		return false, fmt.Errorf("script failed: %w", err)
	}
	return v.ToBoolean(), nil
}
