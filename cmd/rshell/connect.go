package main

import (
	"fmt"

	"github.com/ankouros/rshell/internal/localshell"
	"github.com/ankouros/rshell/internal/sshclient"
	"github.com/ankouros/rshell/internal/terminal"
	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	var flags hostFlags
	var local bool
	var retries int

	cmd := &cobra.Command{
		Use:   "connect [host]",
		Short: "Open an interactive shell with a command audit log",
		Long: `Connect opens an interactive shell on the remote host. Every keystroke is
forwarded as typed; the commands you actually ran are reconstructed locally
and printed when the session ends. Press Ctrl+] to exit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := consoleLogger()
			cols, rows := terminalSize()

			if local {
				ch, err := localshell.Start(cmd.Context(), nil, cols, rows)
				if err != nil {
					return err
				}
				defer ch.Close()

				fmt.Println("Local shell. Press Ctrl+] to exit.")
				commands, err := terminal.RunInteractiveSession(ch, terminal.WithLogger(log))
				fmt.Println("\nConnection closed.")
				printCommandLog(commands)
				return err
			}

			host, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}

			client, cleanup, err := dialWithRetry(cmd.Context(), host, retries)
			if err != nil {
				return err
			}
			defer cleanup()
			defer client.Close()

			ch, err := sshclient.OpenShell(client, cols, rows)
			if err != nil {
				return err
			}
			defer ch.Close()

			fmt.Printf("\nConnected to %s. Press Ctrl+] to exit.\n\n", host.Host)
			commands, err := terminal.RunInteractiveSession(ch, terminal.WithLogger(log))
			fmt.Println("\nConnection closed.")
			printCommandLog(commands)
			return err
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&local, "local", false, "run a local shell instead of SSH")
	cmd.Flags().IntVar(&retries, "retries", 0, "redial attempts on transient connect failures")
	return cmd
}
