package optimize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
)

const binaryenWarning = `---------------------------------------------------------------
WARNING: Using EXPERIMENTAL, unsupported wasm-opt optimization.
         It is not supported, and may go away in the future.
---------------------------------------------------------------`

// RunBinaryen passes m through the external wasm-opt binary and returns the
// decoding of its output. It is a no-op (returning m unchanged) unless
// EXPERIMENTAL_WASM_OPT or EXPERIMENTAL_WASM_OPT_ARGS is set and wasm-opt is
// on PATH. The pack command calls this on the runtime module right after
// pruning it, so most invocations pass straight through.
func RunBinaryen(ctx context.Context, log *logrus.Logger, m *module.Module) (*module.Module, error) {
	if os.Getenv("EXPERIMENTAL_WASM_OPT") == "" && os.Getenv("EXPERIMENTAL_WASM_OPT_ARGS") == "" {
		log.Debug("wasm-opt not opted in, skipping")
		return m, nil
	}
	if _, err := exec.LookPath("wasm-opt"); err != nil {
		log.Debug("wasm-opt binary not found, skipping")
		return m, nil
	}
	fmt.Fprintln(os.Stderr, binaryenWarning)

	args := []string{"-O2", "--debuginfo"}
	if env := os.Getenv("EXPERIMENTAL_WASM_OPT_ARGS"); env != "" {
		args = strings.Split(env, " ")
	}
	args = append(args, "-o", "-")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	wopt := exec.CommandContext(ctx, "wasm-opt", args...)
	stdin, err := wopt.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdin: %w", err)
	}

	var stdout, stderr bytes.Buffer
	wopt.Stdout = &stdout
	wopt.Stderr = &stderr

	if err := wopt.Start(); err != nil {
		return nil, fmt.Errorf("start wasm-opt: %w", err)
	}
	if err := encoding.WriteModule(stdin, m); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("encode module: %w", err)
	}
	if err := stdin.Close(); err != nil {
		return nil, fmt.Errorf("write to wasm-opt: %w", err)
	}
	if err := wopt.Wait(); err != nil {
		return nil, fmt.Errorf("wait for wasm-opt: %w", err)
	}
	if d := stderr.String(); d != "" {
		log.Debugf("wasm-opt debug output: %s", d)
	}

	out, err := encoding.ReadModule(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	return out, nil
}
