package upload

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/liferepo/internal/client/client"
	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/logging"
)

// Resolver asks the remote service which files already have their binary
// and their metadata row stored.
type Resolver struct {
	client      client.Client
	log         logging.Logger
	concurrency int
}

func NewResolver(c client.Client, log logging.Logger, concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{client: c, log: log, concurrency: concurrency}
}

// Resolve returns one state per id, in input order. The batched group
// endpoint is tried first; ids it does not answer for are looked up one by
// one. A lookup that fails yields an unknown state, which callers treat as
// missing on both sides.
func (r *Resolver) Resolve(ctx context.Context, groupID string, fileIDs []string) []models.RemoteFileState {
	known := make(map[string]models.RemoteFileState, len(fileIDs))

	if groupID != "" && len(fileIDs) > 0 {
		states, err := r.client.GroupStatus(ctx, groupID, fileIDs)
		if err != nil {
			r.log.Warn(ctx, "group status lookup failed, checking files one by one", "group_id", groupID, "err", err)
		}
		for _, s := range states {
			s.Known = true
			s.Exists = s.ExistsPath && s.ExistsDB
			known[s.FileID] = s
		}
	}

	result := make([]models.RemoteFileState, len(fileIDs))
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, id := range fileIDs {
		if s, ok := known[id]; ok {
			result[i] = s
			continue
		}
		g.Go(func() error {
			s, err := r.client.FileExists(ctx, id)
			if err != nil {
				r.log.Warn(ctx, "file existence unknown", "file_id", id, "err", err)
				result[i] = models.RemoteFileState{FileID: id}
				return nil
			}
			s.FileID = id
			s.Known = true
			result[i] = s
			return nil
		})
	}
	_ = g.Wait()

	return result
}
