package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iufi-bot/iufi/iufi/logger"
)

// step is one persistence write together with the write that undoes it.
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// runSteps runs steps in order. When one fails the completed ones are undone in
// reverse; an undo that fails too leaves the database out of sync with the pool
// and is logged as divergent.
func runSteps(ctx context.Context, steps ...step) error {
	for i, s := range steps {
		if err := s.do(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if steps[j].undo == nil {
					continue
				}
				if undoErr := steps[j].undo(ctx); undoErr != nil {
					logger.LogDivergent(logger.AttrDB, "Failed to undo persisted change", undoErr,
						slog.String("step", steps[j].name),
					)
				}
			}
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
