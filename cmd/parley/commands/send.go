package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/identity"
	"parley/internal/relay"
)

// send <nickname> <friend-id> <message>: one-shot encrypt, sign, and hand off
// to the relay.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <nickname> <friend-id> <message>",
		Short: "Encrypt and send one message to a friend",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := wire.Profiles.Load(passphrase, args[0])
			if err != nil {
				return err
			}
			em, err := user.CreateMessage(args[1], args[2])
			if err != nil {
				return err
			}

			locked := identity.NewLockedUser(user)
			client, err := relay.Dial(wire.Cfg.RelayAddr, locked, relay.Options{
				ReadTimeout: wire.Cfg.ReadTimeout,
				Logger:      wire.Log,
			})
			if err != nil {
				return err
			}
			client.Enqueue(em)
			if err := client.Close(); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
