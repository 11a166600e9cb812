package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	dashboard "energy-dashboard/internal/dashboard/domain"
)

const (
	defaultInterpreter   = "python3"
	defaultScriptTimeout = 60 * time.Second
	scriptWaitDelay      = 2 * time.Second
)

// ScriptConfig describes the local dashboard script.
type ScriptConfig struct {
	Path        string
	Interpreter string
	WorkDir     string
	Timeout     time.Duration
}

// Script runs a local program that prints the payload on stdout.
type Script struct {
	cfg ScriptConfig
}

// NewScript constructs the script provider. An empty path makes every
// attempt skip.
func NewScript(cfg ScriptConfig) *Script {
	if cfg.Interpreter == "" {
		cfg.Interpreter = defaultInterpreter
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultScriptTimeout
	}
	return &Script{cfg: cfg}
}

// Name implements dashboard.Provider.
func (s *Script) Name() dashboard.SourceTag { return dashboard.TagLocalScript }

// TryLoad runs the script with the filters in its environment.
func (s *Script) TryLoad(ctx context.Context, f dashboard.Filters) (*dashboard.Payload, error) {
	if s.cfg.Path == "" {
		return nil, dashboard.ErrSkipped
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.Interpreter, s.cfg.Path)
	cmd.Dir = s.cfg.WorkDir
	cmd.Env = append(os.Environ(),
		"DASHBOARD_RANGE="+string(f.Range),
		"DASHBOARD_SOURCE="+string(f.Source),
		"DASHBOARD_INTERVAL="+string(f.Interval),
	)
	cmd.WaitDelay = scriptWaitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: script: %v: %s", dashboard.ErrProviderUnavailable, err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: script: %v", dashboard.ErrProviderUnavailable, err)
	}
	payload, err := decodePayload(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	payload.SourceUsed = dashboard.TagLocalScript
	return payload, nil
}
