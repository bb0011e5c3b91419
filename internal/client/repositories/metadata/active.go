package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

const activeGroupKey = "active_group"

// ActiveSlot keeps the group being edited or uploaded across restarts, so an
// interrupted upload can be resumed.
type ActiveSlot struct {
	repo Repository
}

func NewActiveSlot(repo Repository) *ActiveSlot {
	return &ActiveSlot{repo: repo}
}

// Load returns (nil, nil) when no group is active.
func (s *ActiveSlot) Load(ctx context.Context) (*models.AnnotationGroup, error) {
	b, err := s.repo.Get(ctx, activeGroupKey)
	if err != nil || b == nil {
		return nil, err
	}
	var g models.AnnotationGroup
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("failed to decode active group: %w", err)
	}
	return &g, nil
}

func (s *ActiveSlot) Store(ctx context.Context, g *models.AnnotationGroup) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode active group %s: %w", g.GroupID, err)
	}
	return s.repo.Set(ctx, activeGroupKey, b)
}

func (s *ActiveSlot) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, activeGroupKey)
}
