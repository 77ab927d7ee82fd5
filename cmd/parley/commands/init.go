package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/identity"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <nickname>",
		Short: "Generate a new identity and store it encrypted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := identity.NewUser(args[0])
			if err != nil {
				return err
			}
			if err := wire.Profiles.Save(passphrase, user); err != nil {
				return err
			}
			fp, err := user.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nID:          %s\nFingerprint: %s\n", user.ID, fp)
			return nil
		},
	}
}
