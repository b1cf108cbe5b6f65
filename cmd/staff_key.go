package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wedding-gate/security"
)

// newStaffKeyCommand prints a bcrypt hash for STAFF_KEY_HASH.
func newStaffKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "staff-key [key]",
		Short: "Hash a staff key for the STAFF_KEY_HASH setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if len(args[0]) < 12 {
				return errors.New("staff key must be at least 12 characters")
			}
			hash, err := security.HashStaffKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), hash)
			return nil
		},
	}
}
