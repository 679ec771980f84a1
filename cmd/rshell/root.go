package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ankouros/rshell/internal/buildinfo"
	"github.com/ankouros/rshell/internal/config"
	"github.com/ankouros/rshell/internal/model"
	"github.com/ankouros/rshell/internal/sshclient"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "rshell",
		Short:         "Interactive SSH client with a command audit log",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newConnectCmd())
	root.AddCommand(newAdminCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func consoleLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

/*
Host selection
*/

// hostFlags selects and overrides the target host. A positional argument
// names a host from the config file; direct flags work without any config.
type hostFlags struct {
	host     string
	port     int
	user     string
	auth     string
	keyPath  string
	insecure bool
}

func (f *hostFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "server IP or hostname")
	cmd.Flags().IntVar(&f.port, "port", 22, "SSH port")
	cmd.Flags().StringVar(&f.user, "user", "", "SSH username")
	cmd.Flags().StringVar(&f.auth, "auth", "", "auth method: password, key or agent")
	cmd.Flags().StringVar(&f.keyPath, "key", "", "private key path (auth=key)")
	cmd.Flags().BoolVar(&f.insecure, "insecure-host-key", false, "skip known_hosts verification")
}

func (f *hostFlags) resolve(cmd *cobra.Command, args []string) (model.Host, error) {
	var host model.Host

	if len(args) > 0 {
		cfg, _, err := config.EnsureConfig()
		if err != nil {
			return model.Host{}, fmt.Errorf("load config: %w", err)
		}
		h, ok := config.FindHost(cfg, args[0])
		if !ok {
			return model.Host{}, fmt.Errorf("host %q not found in config", args[0])
		}
		host = h
	} else {
		host = model.Host{
			Port: 22,
			Auth: model.AuthConfig{Method: model.AuthPassword},
			HostKey: model.HostKeyConfig{
				Mode: model.HostKeyKnownHosts,
			},
		}
	}

	return f.apply(cmd, host)
}

// apply layers the command-line overrides onto host. An explicitly passed
// --port always wins, even when it equals the flag default.
func (f *hostFlags) apply(cmd *cobra.Command, host model.Host) (model.Host, error) {
	if f.host != "" {
		host.Host = f.host
	}
	if cmd.Flags().Changed("port") || host.Port == 0 {
		host.Port = f.port
	}
	if f.user != "" {
		host.User = f.user
	}
	if f.auth != "" {
		host.Auth.Method = model.AuthMethod(f.auth)
	}
	if f.keyPath != "" {
		host.Auth.KeyPath = f.keyPath
	}
	if f.insecure {
		host.HostKey.Mode = model.HostKeyInsecure
	}

	if host.Host == "" {
		return model.Host{}, errors.New("no host given: pass a config host name or --host")
	}
	if host.User == "" {
		return model.Host{}, errors.New("no user given: set it in the config or pass --user")
	}
	return host, nil
}

/*
Dialing with prompts
*/

func promptPassword(user, hostname string) (string, error) {
	fmt.Printf("%s@%s password: ", user, hostname)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes"
}

// dialHost connects to host, prompting for the password when needed and
// offering to trust an unknown host key. A host key mismatch is never
// trusted automatically.
func dialHost(ctx context.Context, host model.Host) (*ssh.Client, func(), error) {
	var cached string
	pw := func() (string, error) {
		if cached != "" {
			return cached, nil
		}
		p, err := promptPassword(host.User, host.Host)
		if err != nil {
			return "", err
		}
		cached = p
		return p, nil
	}

	client, cleanup, err := sshclient.DialClient(ctx, host, pw)

	var unk sshclient.ErrUnknownHostKey
	if errors.As(err, &unk) {
		q := fmt.Sprintf("Unknown host key for %s (%s). Trust it?", unk.HostPort, unk.Fingerprint)
		if !confirm(q) {
			return nil, nil, err
		}
		if terr := sshclient.TrustHostKey(unk.HostPort, unk.Key); terr != nil {
			return nil, nil, terr
		}
		client, cleanup, err = sshclient.DialClient(ctx, host, pw)
	}

	return client, cleanup, err
}

// backoff grows 2s, 4s, ... capped at 64s.
func backoff(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<attempt) * time.Second
}

// dialWithRetry re-dials on transient failures. Host key problems are never
// retried; they need the operator's decision.
func dialWithRetry(ctx context.Context, host model.Host, retries int) (*ssh.Client, func(), error) {
	for attempt := 1; ; attempt++ {
		client, cleanup, err := dialHost(ctx, host)
		if err == nil {
			return client, cleanup, nil
		}

		var mismatch sshclient.ErrHostKeyMismatch
		var unk sshclient.ErrUnknownHostKey
		if errors.As(err, &mismatch) || errors.As(err, &unk) || attempt > retries {
			return nil, nil, err
		}

		fmt.Fprintf(os.Stderr, "connect failed (%v), retrying in %s...\n", err, backoff(attempt))
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

/*
Shared session helpers
*/

func terminalSize() (cols, rows int) {
	if c, r, err := term.GetSize(int(os.Stdout.Fd())); err == nil && c > 0 && r > 0 {
		return c, r
	}
	return 80, 24
}

func printCommandLog(commands []string) {
	fmt.Println("commands log:")
	fmt.Println()
	for _, c := range commands {
		fmt.Println(c)
	}
}
