package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ankouros/rshell/internal/sftpclient"
	"github.com/ankouros/rshell/internal/sshclient"
	"github.com/ankouros/rshell/internal/terminal"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	var flags hostFlags

	cmd := &cobra.Command{
		Use:   "admin [host]",
		Short: "File transfer and shell access with one shared audit log",
		Long: `Admin opens a command prompt against the remote host. File transfers run
over SFTP; 'shell' drops into an interactive session. Shell commands and
transfers are recorded in a single audit log printed on exit.`,
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

			ftp, err := sftpclient.New(client)
			if err != nil {
				return err
			}
			defer ftp.Close()

			fmt.Printf("\nConnected to %s.\n", host.Host)

			log := consoleLogger()
			var audit []string

			// One input source serves both the prompt and the interactive
			// shell sessions, so nothing typed at a session boundary is lost.
			input := terminal.NewInputSource(os.Stdin)

			for {
				fmt.Print("\nEnter command (download_file/upload_file <local> <remote>, 'shell', or 'exit'): ")
				line, rerr := input.ReadLine()
				if rerr != nil {
					printCommandLog(audit)
					if errors.Is(rerr, io.EOF) {
						return nil
					}
					return rerr
				}
				parts := strings.Fields(strings.TrimSpace(line))
				if len(parts) == 0 {
					continue
				}

				switch strings.ToLower(parts[0]) {

				case "download_file", "upload_file":
					if len(parts) != 3 {
						fmt.Println("Invalid command format. Use: <download/upload>_file <local_path> <remote_path>")
						continue
					}
					local, remote := parts[1], parts[2]
					if strings.ToLower(parts[0]) == "download_file" {
						if err := ftp.Download(remote, local); err != nil {
							fmt.Printf("Error downloading file: %v\n", err)
							continue
						}
						fmt.Printf("File downloaded to %s.\n", local)
						audit = append(audit, fmt.Sprintf("downloaded %s to %s", remote, local))
					} else {
						if err := ftp.Upload(local, remote); err != nil {
							fmt.Printf("Error uploading file: %v\n", err)
							continue
						}
						fmt.Printf("File uploaded to %s.\n", remote)
						audit = append(audit, fmt.Sprintf("uploaded %s to %s", local, remote))
					}

				case "shell":
					cols, rows := terminalSize()
					ch, err := sshclient.OpenShell(client, cols, rows)
					if err != nil {
						fmt.Printf("Error opening shell: %v\n", err)
						continue
					}

					fmt.Println("Entering interactive shell. Press Ctrl+] to leave.")
					commands, runErr := terminal.RunInteractiveSession(ch,
						terminal.WithInputSource(input), terminal.WithLogger(log))
					_ = ch.Close()
					audit = append(audit, commands...)
					fmt.Println("\nShell session ended.")
					if runErr != nil {
						fmt.Printf("Shell error: %v\n", runErr)
					}

				case "exit":
					printCommandLog(audit)
					return nil

				default:
					fmt.Println("Invalid command. Type 'download_file', 'upload_file', 'shell', or 'exit'.")
				}
			}
		},
	}

	flags.bind(cmd)
	return cmd
}
