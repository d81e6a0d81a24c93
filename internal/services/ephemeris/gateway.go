// Package ephemeris runs the external position/house calculator and
// normalizes its loosely structured text output.
package ephemeris

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"ChartCore/internal/domain/models"
	domrepo "ChartCore/internal/domain/repository"
	domsvc "ChartCore/internal/domain/service"
	"ChartCore/pkg/logger"
)

// Config holds gateway settings.
type Config struct {
	Binary         string
	EphePath       string
	Bodies         string
	Timeout        time.Duration
	MaxConcurrent  int
	MaxOutputBytes int
	Reconcile      ReconcileOptions
}

// Option configures the gateway.
type Option func(*Config)

// WithBinary sets the calculator executable, as a path or a name looked up
// in PATH.
func WithBinary(path string) Option {
	return func(c *Config) {
		c.Binary = path
	}
}

// WithEphePath sets the ephemeris data directory passed to the tool.
func WithEphePath(path string) Option {
	return func(c *Config) {
		c.EphePath = path
	}
}

// WithBodies sets the body code list requested for positions.
func WithBodies(codes string) Option {
	return func(c *Config) {
		if codes != "" {
			c.Bodies = codes
		}
	}
}

// WithTimeout sets the wall-clock limit per invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithMaxConcurrent bounds simultaneous subprocesses.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxConcurrent = n
		}
	}
}

// WithMaxOutputBytes caps captured stdout and stderr.
func WithMaxOutputBytes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxOutputBytes = n
		}
	}
}

// WithReconcile sets house reconciliation tolerance and default system.
func WithReconcile(opts ReconcileOptions) Option {
	return func(c *Config) {
		if opts.Tolerance > 0 {
			c.Reconcile.Tolerance = opts.Tolerance
		}
		if opts.DefaultSystem != "" {
			c.Reconcile.DefaultSystem = opts.DefaultSystem
		}
	}
}

// Gateway invokes the calculator as a subprocess. Each call blocks on one
// process; concurrent calls share a bounded pool of process slots.
type Gateway struct {
	cfg     Config
	binary  string
	slots   *semaphore.Weighted
	log     *logger.Logger
	metrics domrepo.Metrics
}

// NewGateway resolves and checks the executable. A missing or
// non-executable tool is a configuration error.
func NewGateway(log *logger.Logger, metrics domrepo.Metrics, opts ...Option) (*Gateway, error) {
	cfg := Config{
		Binary:         "swetest",
		Bodies:         "0123456789mt",
		Timeout:        10 * time.Second,
		MaxConcurrent:  4,
		MaxOutputBytes: 1 << 20,
		Reconcile:      DefaultReconcileOptions(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	bin, err := resolve(cfg.Binary)
	if err != nil {
		return nil, newError(KindConfiguration, "startup", cfg.Binary, err)
	}
	return &Gateway{
		cfg:     cfg,
		binary:  bin,
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		log:     log,
		metrics: metrics,
	}, nil
}

func resolve(binary string) (string, error) {
	if binary == "" {
		return "", errors.New("no executable configured")
	}
	path := binary
	if !strings.ContainsRune(binary, os.PathSeparator) {
		p, err := exec.LookPath(binary)
		if err != nil {
			return "", err
		}
		path = p
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.IsDir() || fi.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%s is not executable", path)
	}
	return path, nil
}

// Positions returns the configured body set at instant.
func (g *Gateway) Positions(ctx context.Context, instant time.Time) ([]models.BodyPosition, error) {
	out, err := g.run(ctx, StagePositions, g.positionArgs(instant))
	if err != nil {
		return nil, err
	}
	bodies, err := ParsePositions(out)
	if err != nil {
		g.metrics.RecordInvocation(StagePositions, string(KindParse))
		return nil, err
	}
	g.metrics.RecordInvocation(StagePositions, "ok")
	return bodies, nil
}

// Houses returns the house frame for the place and system at instant. An
// unreconciled frame is returned without error; inspect its Status.
func (g *Gateway) Houses(ctx context.Context, instant time.Time, lat, lon float64, system string) (*models.HouseFrame, error) {
	out, err := g.run(ctx, StageHouses, g.houseArgs(instant, lat, lon, system))
	if err != nil {
		return nil, err
	}
	frame, err := ParseHouses(out, system, g.cfg.Reconcile)
	if err != nil {
		g.metrics.RecordInvocation(StageHouses, string(KindParse))
		return nil, err
	}
	if frame.Status != models.FrameAligned {
		g.log.Warn("house frame not aligned",
			logger.String("system", system),
			logger.String("status", string(frame.Status)),
			logger.Float64("asc", frame.Angles.ASC),
			logger.Float64("mc", frame.Angles.MC))
	}
	g.metrics.RecordInvocation(StageHouses, "ok")
	return frame, nil
}

func (g *Gateway) run(ctx context.Context, stage string, args []string) (string, error) {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		g.metrics.RecordInvocation(stage, string(KindInvocation))
		return "", newError(KindInvocation, stage, "", fmt.Errorf("acquire process slot: %w", err))
	}
	defer g.slots.Release(1)

	execCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, g.binary, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, max: g.cfg.MaxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderr, max: g.cfg.MaxOutputBytes}

	g.log.Debug("invoking ephemeris tool",
		logger.String("stage", stage),
		logger.Strings("args", args))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	g.metrics.RecordLatency("ephemeris_"+stage, elapsed.Seconds())

	if err != nil {
		kind, cause := classify(execCtx, err, g.cfg.Timeout, stderr.String())
		g.metrics.RecordInvocation(stage, string(kind))
		g.log.Error("ephemeris tool failed",
			logger.String("stage", stage),
			logger.Duration("elapsed", elapsed),
			logger.Error(cause))
		return "", newError(kind, stage, strings.Join(args, " "), cause)
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		g.metrics.RecordInvocation(stage, string(KindInvocation))
		return "", newError(KindInvocation, stage, strings.Join(args, " "), errors.New("empty output"))
	}
	return out, nil
}

func classify(execCtx context.Context, err error, timeout time.Duration, stderr string) (Kind, error) {
	var exitErr *exec.ExitError
	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		return KindInvocation, fmt.Errorf("timeout after %s: %w", timeout, err)
	case errors.Is(execCtx.Err(), context.Canceled):
		return KindInvocation, fmt.Errorf("canceled: %w", err)
	case errors.As(err, &exitErr):
		return KindInvocation, fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr))
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return KindConfiguration, err
	default:
		return KindInvocation, err
	}
}

// limitedWriter discards bytes past max while reporting full writes so the
// child never blocks on a full pipe.
type limitedWriter struct {
	w       *bytes.Buffer
	max     int
	written int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if room := l.max - l.written; room > 0 {
		n := len(p)
		if n > room {
			n = room
		}
		l.w.Write(p[:n])
		l.written += n
	}
	return len(p), nil
}

type noopMetrics struct{}

func (noopMetrics) RecordInvocation(string, string) {}
func (noopMetrics) RecordLatency(string, float64)   {}
func (noopMetrics) RecordCacheLookup(bool)          {}
func (noopMetrics) RecordPattern(string)            {}

var _ domsvc.EphemerisGateway = (*Gateway)(nil)
