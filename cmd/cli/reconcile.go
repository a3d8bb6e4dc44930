package main

import (
	"fmt"

	"github.com/memora/backend/internal/database"
	"github.com/memora/backend/internal/engagement"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/notifications"
	"github.com/memora/backend/internal/social"
	"github.com/spf13/cobra"
)

// reconcileCmd recomputes every denormalized counter from its ledger
// table. Counters drift when a process dies between a ledger write and
// the matching counter update.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute denormalized counters from their ledger tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		notifier := notifications.NewService(database.DB)
		engagementService := engagement.NewService(database.DB, notifier, nil)
		socialStore := social.NewStore(database.DB, notifier)

		corrected, err := engagementService.ReconcilePosts()
		if err != nil {
			return fmt.Errorf("post reconcile failed: %w", err)
		}
		fmt.Printf("Corrected %d post counter(s)\n", corrected)

		var userIDs []string
		if err := database.DB.Model(&models.User{}).Pluck("id", &userIDs).Error; err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		for _, userID := range userIDs {
			if _, _, err := socialStore.Reconcile(userID); err != nil {
				return fmt.Errorf("user reconcile failed for %s: %w", userID, err)
			}
		}
		fmt.Printf("Reconciled follow counters for %d user(s)\n", len(userIDs))
		return nil
	},
}
