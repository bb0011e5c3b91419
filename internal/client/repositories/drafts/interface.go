package drafts

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

var ErrNotFound = errors.New("draft not found")

type Repository interface {
	// Save inserts or replaces the draft with g.GroupID, files included.
	Save(ctx context.Context, g *models.AnnotationGroup) error
	Get(ctx context.Context, groupID string) (*models.AnnotationGroup, error)
	// List returns all drafts, newest first.
	List(ctx context.Context) ([]*models.AnnotationGroup, error)
	Delete(ctx context.Context, groupID string) error
	Exists(ctx context.Context, groupID string) (bool, error)
}
