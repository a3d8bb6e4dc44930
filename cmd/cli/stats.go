package main

import (
	"fmt"

	"github.com/memora/backend/internal/database"
	"github.com/memora/backend/internal/models"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print platform-wide row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		counts := []struct {
			label string
			model interface{}
		}{
			{"users", &models.User{}},
			{"posts", &models.Post{}},
			{"likes", &models.Like{}},
			{"comments", &models.Comment{}},
			{"follows", &models.Follow{}},
			{"views", &models.PostView{}},
			{"notifications", &models.Notification{}},
		}

		for _, c := range counts {
			var n int64
			if err := database.DB.Model(c.model).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to count %s: %w", c.label, err)
			}
			fmt.Printf("%-14s %d\n", c.label, n)
		}
		return nil
	},
}
