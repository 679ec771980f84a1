package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ankouros/rshell/internal/model"
	"github.com/ankouros/rshell/internal/monitor"
	"github.com/ankouros/rshell/internal/sshclient"
	"github.com/ankouros/rshell/internal/terminal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newMonitorCmd() *cobra.Command {
	var flags hostFlags
	var thresholds model.Thresholds
	var intervalSec int
	var logPath string

	cmd := &cobra.Command{
		Use:   "monitor [host]",
		Short: "Watch remote server health with threshold alerts",
		Long: `Monitor samples CPU, memory and disk usage on the remote host in the
background and logs threshold violations. A prompt stays available for
checking status or dropping into an interactive shell.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}

			client, cleanup, err := dialHost(cmd.Context(), host)
			if err != nil {
				return err
			}
			defer cleanup()
			defer client.Close()

			if logPath == "" {
				logPath = defaultMonitorLogPath()
			}
			log := fileLogger(logPath)

			runner := monitor.RunnerFunc(func(command string) (string, error) {
				return sshclient.RunCommand(client, command)
			})
			interval := time.Duration(intervalSec) * time.Second
			mon := monitor.New(runner, thresholds, interval, log)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go mon.Run(ctx)

			fmt.Printf("\nConnected to %s. Starting server monitoring...\n", host.Host)
			fmt.Printf("Thresholds - CPU: %.0f%%, Memory: %.0f%%, Disk: %.0f%%\n",
				thresholds.CPU, thresholds.Memory, thresholds.Disk)
			fmt.Printf("Interval: %d seconds\n", intervalSec)
			fmt.Println("Enter 'shell' for interactive session, 'status' for metrics, or 'exit' to quit")

			sessionLog := consoleLogger()
			var audit []string

			// One input source serves both the prompt and the interactive
			// shell sessions, so nothing typed at a session boundary is lost.
			input := terminal.NewInputSource(os.Stdin)

			for {
				fmt.Print("\nCommand [shell/status/exit]: ")
				line, rerr := input.ReadLine()
				if rerr != nil {
					printCommandLog(audit)
					if errors.Is(rerr, io.EOF) {
						return nil
					}
					return rerr
				}

				switch strings.ToLower(strings.TrimSpace(line)) {

				case "shell":
					cols, rows := terminalSize()
					ch, err := sshclient.OpenShell(client, cols, rows)
					if err != nil {
						fmt.Printf("Error opening shell: %v\n", err)
						continue
					}

					fmt.Println("Entering shell (Ctrl+] to exit)...")
					commands, runErr := terminal.RunInteractiveSession(ch,
						terminal.WithInputSource(input), terminal.WithLogger(sessionLog))
					_ = ch.Close()
					audit = append(audit, commands...)
					fmt.Println("\nShell session ended.")
					if runErr != nil {
						fmt.Printf("Shell error: %v\n", runErr)
					}

				case "status":
					metrics, warnings, ok := mon.Snapshot()
					if !ok {
						fmt.Println("No metrics available yet")
						continue
					}
					fmt.Println()
					fmt.Print(monitor.FormatStatus(metrics, warnings, thresholds))
					fmt.Printf("\nMonitoring Interval: %d sec\n", intervalSec)
					fmt.Printf("Log file: %s\n", logPath)

				case "exit":
					printCommandLog(audit)
					fmt.Println("\nDisconnected from server.")
					return nil

				default:
					fmt.Println("Invalid command. Please enter 'shell', 'status', or 'exit'")
				}
			}
		},
	}

	flags.bind(cmd)
	def := model.DefaultThresholds()
	cmd.Flags().Float64Var(&thresholds.CPU, "cpu", def.CPU, "CPU threshold %")
	cmd.Flags().Float64Var(&thresholds.Memory, "mem", def.Memory, "memory threshold %")
	cmd.Flags().Float64Var(&thresholds.Disk, "disk", def.Disk, "disk threshold %")
	cmd.Flags().IntVar(&intervalSec, "interval", 60, "check interval in seconds")
	cmd.Flags().StringVar(&logPath, "log", "", "warning log file path")
	return cmd
}

func defaultMonitorLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "rshell", "monitor.log")
}

// fileLogger logs warnings to path, falling back to a no-op logger when the
// file cannot be opened (e.g. permission denied).
func fileLogger(path string) zerolog.Logger {
	if path == "" {
		return zerolog.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop()
	}
	return zerolog.New(f).With().Timestamp().Logger()
}
