package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"parley/internal/app"
)

var (
	home        string
	passphrase  string
	relayAddr   string
	readTimeout time.Duration
	logLevel    string

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "parley",
		Short: "Peer-to-peer encrypted messaging through an untrusted relay",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".parley")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			// Flags beat config file values.
			if cmd.Flags().Changed("relay") {
				cfg.RelayAddr = relayAddr
			}
			if cmd.Flags().Changed("read-timeout") {
				cfg.ReadTimeout = readTimeout
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			wire, err = app.NewWire(cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.parley)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the profile")
	root.PersistentFlags().StringVar(&relayAddr, "relay", "", "relay TCP address (e.g. 127.0.0.1:7878)")
	root.PersistentFlags().DurationVar(&readTimeout, "read-timeout", time.Second, "transport read timeout")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		exportCmd(),
		addFriendCmd(),
		friendsCmd(),
		historyCmd(),
		sendCmd(),
		chatCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
