package costsync

import (
	"context"
	"log/slog"
	"strings"

	"costsync/pkg/ghe"
)

// SeatSplit divides Copilot seat holders between the default cost
// center and the exception cost center
type SeatSplit struct {
	// Assignments holds one entry per seat holder
	Assignments map[string]Assignment
	// ExceptionUsers are the seat holders matched by the exception list
	ExceptionUsers []string
	// DefaultUsers are the remaining seat holders
	DefaultUsers []string
}

// SplitSeats assigns every seat holder to one of two cost centers.
// Exception list matching is case-insensitive.
func SplitSeats(seats, exceptions []string, defaultCC, exceptionCC string) *SeatSplit {
	exceptionSet := make(map[string]bool, len(exceptions))
	for _, u := range exceptions {
		exceptionSet[strings.ToLower(u)] = true
	}

	split := &SeatSplit{Assignments: make(map[string]Assignment, len(seats))}

	for _, username := range seats {
		if exceptionSet[strings.ToLower(username)] {
			split.ExceptionUsers = append(split.ExceptionUsers, username)
			split.Assignments[username] = Assignment{Username: username, CostCenter: exceptionCC}
		} else {
			split.DefaultUsers = append(split.DefaultUsers, username)
			split.Assignments[username] = Assignment{Username: username, CostCenter: defaultCC}
		}
	}

	return split
}

// FetchSeats lists all Copilot seat holders of the enterprise
func FetchSeats(ctx context.Context, api ghe.APIClient, logger *slog.Logger) ([]string, error) {
	seats, err := api.ListCopilotSeats(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("fetched copilot seats", "count", len(seats))
	return seats, nil
}
