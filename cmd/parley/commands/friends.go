package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/identity"
)

// export prints the blob handed to a peer; add-friend consumes one.

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <nickname>",
		Short: "Print your public identity as an exchange blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := wire.Profiles.Load(passphrase, args[0])
			if err != nil {
				return err
			}
			self, err := user.ToFriend()
			if err != nil {
				return err
			}
			blob, err := self.Encode()
			if err != nil {
				return err
			}
			fmt.Println(blob)
			return nil
		},
	}
}

func addFriendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-friend <nickname> <blob>",
		Short: "Add a peer from their exchange blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := wire.Profiles.Load(passphrase, args[0])
			if err != nil {
				return err
			}
			friend, err := identity.DecodeFriend(args[1])
			if err != nil {
				return err
			}
			if err := user.AddFriend(friend); err != nil {
				return err
			}
			if err := wire.Profiles.Save(passphrase, user); err != nil {
				return err
			}
			fmt.Printf("Added %s (%s)\n", friend.Nickname, friend.ID)
			return nil
		},
	}
}

func friendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "friends <nickname>",
		Short: "List known friends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := wire.Profiles.Load(passphrase, args[0])
			if err != nil {
				return err
			}
			for _, f := range user.Friends() {
				fp, err := f.Fingerprint()
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s  %s\n", f.ID, fp, f.Nickname)
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <nickname> <friend-id>",
		Short: "Print the message history with a friend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := wire.Profiles.Load(passphrase, args[0])
			if err != nil {
				return err
			}
			friend, ok := user.Friend(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", identity.ErrNoSuchFriend, args[1])
			}
			for _, m := range friend.Messages() {
				fmt.Printf("%s|%d: %s\n", m.ID, m.CreatedAt, m.Content)
			}
			return nil
		},
	}
}
