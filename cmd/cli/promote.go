package main

import (
	"fmt"

	"github.com/memora/backend/internal/database"
	"github.com/memora/backend/internal/models"
	"github.com/spf13/cobra"
)

var promoteRevoke bool

// promoteCmd flips the admin flag directly in the database. Note that
// ADMIN_EMAILS re-derives the flag on the user's next sign-in, so
// permanent grants belong in that allowlist.
var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant or revoke admin privileges for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		var user models.User
		if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
			return fmt.Errorf("user not found: %s", email)
		}

		grant := !promoteRevoke
		if user.IsAdmin == grant {
			fmt.Printf("No change: %s admin=%v\n", email, user.IsAdmin)
			return nil
		}

		if err := database.DB.Model(&user).Update("is_admin", grant).Error; err != nil {
			return fmt.Errorf("failed to update admin flag: %w", err)
		}
		fmt.Printf("Updated: %s admin=%v\n", email, grant)
		return nil
	},
}

func init() {
	promoteCmd.Flags().BoolVar(&promoteRevoke, "revoke", false, "Revoke admin privileges instead of granting")
	rootCmd.AddCommand(promoteCmd)
}
