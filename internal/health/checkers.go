package health

import (
	"context"
	"os/exec"
	"time"
)

// ExecChecker verifies an external binary can be found, for the encode and
// probe executables the pipeline shells out to.
type ExecChecker struct {
	name string
	bin  string
}

// NewExecChecker probes for bin via PATH lookup (or directly if bin is an
// absolute path).
func NewExecChecker(name, bin string) *ExecChecker {
	return &ExecChecker{name: name, bin: bin}
}

func (c *ExecChecker) Name() string { return c.name }

func (c *ExecChecker) Check(_ context.Context) CheckResult {
	path, err := exec.LookPath(c.bin)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.bin}
	}
	return CheckResult{Status: StatusHealthy, Message: path}
}

// PingChecker adapts a Ping-style dependency (database, remote API) into a
// checker with a bounded timeout per probe.
type PingChecker struct {
	name    string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

// NewPingChecker wraps ping; a zero timeout defaults to 5s.
func NewPingChecker(name string, timeout time.Duration, ping func(ctx context.Context) error) *PingChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PingChecker{name: name, timeout: timeout, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
