package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/identity"
	"parley/internal/relay"
)

// chat runs the interactive session: the foreground reads compose commands
// from stdin while the background sync loop applies whatever the relay
// delivers. Both sides share the identity through its lock.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <nickname>",
		Short: "Connect to the relay and chat interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := wire.Profiles.Load(passphrase, args[0])
			if err != nil {
				return err
			}
			locked := identity.NewLockedUser(user)

			client, err := relay.Dial(wire.Cfg.RelayAddr, locked, relay.Options{
				ReadTimeout: wire.Cfg.ReadTimeout,
				Logger:      wire.Log,
				OnRoster: func(roster []relay.Peer) {
					fmt.Printf("-- %d peer(s) online\n", len(roster))
				},
			})
			if err != nil {
				return err
			}

			fmt.Println("commands: /friends, /history <friend-id>, /send <friend-id> <text>, /quit")
			if err := chatLoop(os.Stdin, locked, client); err != nil {
				client.Close()
				return err
			}
			if err := client.Close(); err != nil {
				return err
			}
			// Persist whatever arrived during the session.
			return locked.With(func(u *identity.User) error {
				return wire.Profiles.Save(passphrase, u)
			})
		},
	}
}

func chatLoop(in io.Reader, locked *identity.LockedUser, client *relay.Client) error {
	// Input lines arrive on a channel so the loop can watch the sync loop at
	// the same time; otherwise a dead connection would go unnoticed until the
	// next keystroke.
	inputs := make(chan string)
	go func() {
		defer close(inputs)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			inputs <- scanner.Text()
		}
	}()
	for {
		var raw string
		select {
		case <-client.Done():
			if err := client.Err(); err != nil {
				fmt.Println("-- connection lost")
				return err
			}
			return nil
		case line, ok := <-inputs:
			if !ok {
				return nil
			}
			raw = line
		}
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
		case line == "/quit":
			return nil
		case line == "/friends":
			_ = locked.With(func(u *identity.User) error {
				for _, f := range u.Friends() {
					fmt.Printf("%s  %s\n", f.ID, f.Nickname)
				}
				return nil
			})
		case strings.HasPrefix(line, "/history "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/history "))
			_ = locked.With(func(u *identity.User) error {
				friend, ok := u.Friend(id)
				if !ok {
					fmt.Println("no such friend")
					return nil
				}
				for _, m := range friend.Messages() {
					fmt.Printf("%s|%d: %s\n", m.ID, m.CreatedAt, m.Content)
				}
				return nil
			})
		case strings.HasPrefix(line, "/send "):
			rest := strings.TrimPrefix(line, "/send ")
			parts := strings.SplitN(rest, " ", 2)
			if len(parts) != 2 {
				fmt.Println("usage: /send <friend-id> <text>")
				continue
			}
			em, err := locked.CreateMessage(parts[0], parts[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			client.Enqueue(em)
		default:
			fmt.Println("unknown command")
		}
	}
}
