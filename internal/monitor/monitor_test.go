package monitor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ankouros/rshell/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func cannedRunner(cpu, mem, disk string) Runner {
	return RunnerFunc(func(command string) (string, error) {
		switch command {
		case cpuProbe:
			return cpu, nil
		case memProbe:
			return mem, nil
		case diskProbe:
			return disk, nil
		case topCPUProbe:
			return "  1 root 90.0  1.0 stress", nil
		case topMemProbe:
			return "  2 root  1.0 70.0 java", nil
		default:
			return "", fmt.Errorf("unexpected probe: %s", command)
		}
	})
}

func TestSampleOnceRecordsMetrics(t *testing.T) {
	m := New(cannedRunner("12.5", "40.2", "55"), model.DefaultThresholds(), time.Minute, zerolog.Nop())

	require.NoError(t, m.sampleOnce())

	metrics, warnings, ok := m.Snapshot()
	require.True(t, ok)
	require.Empty(t, warnings)
	require.InDelta(t, 12.5, metrics.CPU, 0.001)
	require.InDelta(t, 40.2, metrics.Memory, 0.001)
	require.InDelta(t, 55.0, metrics.Disk, 0.001)
	require.Contains(t, metrics.TopCPU, "stress")
	require.Len(t, m.History(), 1)
}

func TestSampleOnceFlagsThresholdViolations(t *testing.T) {
	m := New(cannedRunner("91.0", "90.5", "95"), model.DefaultThresholds(), time.Minute, zerolog.Nop())

	require.NoError(t, m.sampleOnce())

	_, warnings, ok := m.Snapshot()
	require.True(t, ok)
	require.Len(t, warnings, 3)
	require.Contains(t, warnings[0], "CPU usage exceeded")
	require.Contains(t, warnings[1], "Memory usage exceeded")
	require.Contains(t, warnings[2], "Disk usage exceeded")
}

func TestWarningsClearOnRecovery(t *testing.T) {
	hot := cannedRunner("91.0", "10", "10")
	cool := cannedRunner("5.0", "10", "10")

	m := New(hot, model.DefaultThresholds(), time.Minute, zerolog.Nop())
	require.NoError(t, m.sampleOnce())
	_, warnings, _ := m.Snapshot()
	require.Len(t, warnings, 1)

	m.runner = cool
	require.NoError(t, m.sampleOnce())
	_, warnings, _ = m.Snapshot()
	require.Empty(t, warnings)
}

func TestHistoryIsCapped(t *testing.T) {
	m := New(cannedRunner("1", "1", "1"), model.DefaultThresholds(), time.Minute, zerolog.Nop())
	for i := 0; i < historyLength+10; i++ {
		require.NoError(t, m.sampleOnce())
	}
	require.Len(t, m.History(), historyLength)
}

func TestSampleOnceProbeFailure(t *testing.T) {
	boom := errors.New("connection reset")
	m := New(RunnerFunc(func(string) (string, error) { return "", boom }),
		model.DefaultThresholds(), time.Minute, zerolog.Nop())

	err := m.sampleOnce()
	require.ErrorIs(t, err, boom)

	_, _, ok := m.Snapshot()
	require.False(t, ok)
}

func TestSampleOnceUnparsableOutput(t *testing.T) {
	m := New(cannedRunner("n/a", "1", "1"), model.DefaultThresholds(), time.Minute, zerolog.Nop())
	require.ErrorContains(t, m.sampleOnce(), "cpu probe")
}

func TestFormatStatus(t *testing.T) {
	metrics := Metrics{
		CPU: 42.5, Memory: 61.2, Disk: 70,
		TopCPU: "1 root 42.5 1.0 stress",
		TopMem: "2 root 1.0 61.2 java",
		Taken:  time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC),
	}
	out := FormatStatus(metrics, []string{"CPU usage exceeded: 42.5% > 40.0%"}, model.Thresholds{CPU: 40, Memory: 85, Disk: 80})

	require.True(t, strings.HasPrefix(out, "=== Server Status ==="))
	require.Contains(t, out, "! CPU usage exceeded")
	require.Contains(t, out, "CPU Usage: 42.5% (Threshold: 40%)")
	require.Contains(t, out, "10:30:00")
}
