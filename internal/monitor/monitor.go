package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ankouros/rshell/internal/model"
	"github.com/rs/zerolog"
)

// Remote metric probes. These run on the monitored host over SSH and each
// print a single value or a small process table.
const (
	cpuProbe    = `top -bn1 | grep 'Cpu(s)' | awk '{print $2 + $4}'`
	memProbe    = `free | grep Mem | awk '{print $3/$2 * 100.0}'`
	diskProbe   = `df / | tail -1 | awk '{print $5}' | sed 's/%//'`
	topCPUProbe = `ps -eo pid,user,%cpu,%mem,comm --sort=-%cpu | head -n 4 | tail -n 3`
	topMemProbe = `ps -eo pid,user,%cpu,%mem,comm --sort=-%mem | head -n 4 | tail -n 3`
)

// historyLength caps the rolling metric history (one hour at the default
// 60s interval).
const historyLength = 60

// errorRetryDelay is how long the sampler backs off after a failed probe
// round before trying again.
const errorRetryDelay = 5 * time.Second

// Runner executes one command on the monitored host and returns its
// trimmed stdout. Satisfied by an SSH-backed closure in the CLI and by
// fakes in tests.
type Runner interface {
	Run(command string) (string, error)
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(command string) (string, error)

func (f RunnerFunc) Run(command string) (string, error) { return f(command) }

// Metrics is one sample of remote resource usage.
type Metrics struct {
	CPU    float64
	Memory float64
	Disk   float64
	TopCPU string
	TopMem string
	Taken  time.Time
}

// Monitor periodically samples a remote host's health and records
// threshold violations. It runs on its own goroutine and shares nothing
// with the interactive session layer; REPL commands read it through
// Snapshot.
type Monitor struct {
	runner     Runner
	thresholds model.Thresholds
	interval   time.Duration
	log        zerolog.Logger

	mu       sync.Mutex
	history  []Metrics
	last     *Metrics
	warnings []string
}

func New(runner Runner, thresholds model.Thresholds, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		runner:     runner,
		thresholds: thresholds,
		interval:   interval,
		log:        log,
	}
}

// Run samples until ctx is cancelled. A failed probe round is logged and
// retried after a short delay; it never stops the monitor.
func (m *Monitor) Run(ctx context.Context) {
	for {
		delay := m.interval
		if err := m.sampleOnce(); err != nil {
			m.log.Error().Err(err).Msg("monitoring error")
			delay = errorRetryDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (m *Monitor) sampleOnce() error {
	metrics, err := m.collect()
	if err != nil {
		return err
	}

	warnings := m.evaluate(metrics)

	m.mu.Lock()
	m.last = &metrics
	m.warnings = warnings
	m.history = append(m.history, metrics)
	if len(m.history) > historyLength {
		m.history = m.history[len(m.history)-historyLength:]
	}
	m.mu.Unlock()

	for _, w := range warnings {
		m.log.Warn().Msg(w)
	}
	return nil
}

func (m *Monitor) collect() (Metrics, error) {
	cpu, err := m.probeFloat(cpuProbe)
	if err != nil {
		return Metrics{}, fmt.Errorf("cpu probe: %w", err)
	}
	mem, err := m.probeFloat(memProbe)
	if err != nil {
		return Metrics{}, fmt.Errorf("memory probe: %w", err)
	}
	disk, err := m.probeFloat(diskProbe)
	if err != nil {
		return Metrics{}, fmt.Errorf("disk probe: %w", err)
	}

	topCPU, err := m.runner.Run(topCPUProbe)
	if err != nil {
		return Metrics{}, fmt.Errorf("top cpu probe: %w", err)
	}
	topMem, err := m.runner.Run(topMemProbe)
	if err != nil {
		return Metrics{}, fmt.Errorf("top mem probe: %w", err)
	}

	return Metrics{
		CPU:    cpu,
		Memory: mem,
		Disk:   disk,
		TopCPU: topCPU,
		TopMem: topMem,
		Taken:  time.Now(),
	}, nil
}

func (m *Monitor) probeFloat(command string) (float64, error) {
	out, err := m.runner.Run(command)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", out, err)
	}
	return v, nil
}

func (m *Monitor) evaluate(metrics Metrics) []string {
	var warnings []string
	if metrics.CPU > m.thresholds.CPU {
		warnings = append(warnings, fmt.Sprintf(
			"CPU usage exceeded: %.1f%% > %.1f%%", metrics.CPU, m.thresholds.CPU))
	}
	if metrics.Memory > m.thresholds.Memory {
		warnings = append(warnings, fmt.Sprintf(
			"Memory usage exceeded: %.1f%% > %.1f%%", metrics.Memory, m.thresholds.Memory))
	}
	if metrics.Disk > m.thresholds.Disk {
		warnings = append(warnings, fmt.Sprintf(
			"Disk usage exceeded: %.1f%% > %.1f%%", metrics.Disk, m.thresholds.Disk))
	}
	return warnings
}

// Snapshot returns the most recent sample and its warnings. ok is false
// until the first successful sample.
func (m *Monitor) Snapshot() (metrics Metrics, warnings []string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Metrics{}, nil, false
	}
	return *m.last, append([]string(nil), m.warnings...), true
}

// History returns the rolling sample history, oldest first.
func (m *Monitor) History() []Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Metrics, len(m.history))
	copy(out, m.history)
	return out
}

// FormatStatus renders the operator-facing status block for the REPL.
func FormatStatus(metrics Metrics, warnings []string, thresholds model.Thresholds) string {
	var b strings.Builder
	b.WriteString("=== Server Status ===\n")
	if len(warnings) > 0 {
		b.WriteString("\n=== WARNINGS ===\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "! %s\n", w)
		}
	}
	fmt.Fprintf(&b, "\nCPU Usage: %.1f%% (Threshold: %.0f%%)\n", metrics.CPU, thresholds.CPU)
	fmt.Fprintf(&b, "Memory Usage: %.1f%% (Threshold: %.0f%%)\n", metrics.Memory, thresholds.Memory)
	fmt.Fprintf(&b, "Disk Usage: %.1f%% (Threshold: %.0f%%)\n", metrics.Disk, thresholds.Disk)
	fmt.Fprintf(&b, "\nTop CPU Processes:\n%s\n", metrics.TopCPU)
	fmt.Fprintf(&b, "\nTop Memory Processes:\n%s\n", metrics.TopMem)
	fmt.Fprintf(&b, "\nLast Check: %s\n", metrics.Taken.Format("15:04:05"))
	return b.String()
}
