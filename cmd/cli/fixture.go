package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

// fixture is the file format read by --fixture. Keys are registered in order, then the
// transitions are replayed to bring records into non-initial states.
type fixture struct {
	Keys        []*models.KeyRecord `json:"keys"`
	Transitions []fixtureTransition `json:"transitions"`
}

type fixtureTransition struct {
	ID           string                    `json:"id"`
	Action       constants.LifecycleAction `json:"action"`
	NewExpiresAt *time.Time                `json:"new_expires_at,omitempty"`
}

func loadFixture(ctx context.Context, path string, keys application.KeyRegistry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	for i, rec := range f.Keys {
		if _, err := keys.Register(ctx, rec); err != nil {
			return fmt.Errorf("fixture key %d: %w", i, err)
		}
	}
	for i, t := range f.Transitions {
		req := models.TransitionRequest{Action: t.Action, NewExpiresAt: t.NewExpiresAt}
		if _, err := keys.Transition(ctx, t.ID, req); err != nil {
			return fmt.Errorf("fixture transition %d (%s %s): %w", i, t.Action, t.ID, err)
		}
	}
	return nil
}
