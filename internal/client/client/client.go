package client

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

// UploadRequest is one binary transfer to the remote store.
type UploadRequest struct {
	FileID      string
	FileName    string
	ContentType string
	Content     io.Reader
	Metadata    json.RawMessage
}

type Client interface {
	Ping(ctx context.Context) error

	FileExists(ctx context.Context, fileID string) (models.RemoteFileState, error)
	GroupStatus(ctx context.Context, groupID string, fileIDs []string) ([]models.RemoteFileState, error)

	UploadFile(ctx context.Context, req UploadRequest) (string, error)
	UpsertGroup(ctx context.Context, group models.GroupMetadata) error
	InsertFile(ctx context.Context, file models.FileAnnotation, path string) error
	UpdateFileDescriptions(ctx context.Context, file models.FileAnnotation) error
	UpdateFileTags(ctx context.Context, file models.FileAnnotation) error
	LinkFiles(ctx context.Context, link models.GroupLink) error
	DeleteFile(ctx context.Context, fileID string) error

	GetGroup(ctx context.Context, groupID string) (*models.AnnotationGroup, error)
	GroupIDs(ctx context.Context) ([]string, error)
}
