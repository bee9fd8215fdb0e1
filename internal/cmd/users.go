package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List Copilot seat holders",
	Long: `Users lists every Copilot seat holder in the enterprise. Seat holders
on the configured exception list are marked.`,
	RunE: runUsers,
}

func runUsers(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.GitHub.Enterprise == "" {
		return fmt.Errorf("github.enterprise is required")
	}
	logger := setupLogging(cfg)

	ctx := context.Background()

	client, err := authenticate(ctx, cfg)
	if err != nil {
		return err
	}

	seats, err := client.ListCopilotSeats(ctx)
	if err != nil {
		return err
	}
	logger.Debug("fetched copilot seats", "count", len(seats))

	exceptions := make(map[string]bool)
	for _, u := range cfg.CostCenters.Exceptions.ExceptionUsers {
		exceptions[strings.ToLower(u)] = true
	}

	fmt.Printf("\n📋 Copilot seat holders (%d):\n", len(seats))
	marked := 0
	for _, u := range seats {
		if exceptions[strings.ToLower(u)] {
			fmt.Printf("  ⚠️  %s (exception)\n", u)
			marked++
		} else {
			fmt.Printf("  • %s\n", u)
		}
	}

	fmt.Printf("\n📊 Total: %d, exceptions: %d\n", len(seats), marked)
	return nil
}
