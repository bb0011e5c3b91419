package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

// HTTPClient talks to the annotation server over its JSON API.
type HTTPClient struct {
	http *resty.Client
}

type apiError struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

func (e *apiError) text() string {
	if e == nil {
		return ""
	}
	if e.Detail != nil {
		if s, ok := e.Detail.(string); ok {
			return s
		}
		return fmt.Sprint(e.Detail)
	}
	return e.Message
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPClient{http: c}
}

func (c *HTTPClient) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&apiError{})
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.request(ctx).Get("/config")
	return mapError("ping", resp, err)
}

func (c *HTTPClient) FileExists(ctx context.Context, fileID string) (models.RemoteFileState, error) {
	var state models.RemoteFileState
	resp, err := c.request(ctx).
		SetQueryParam("file_id", fileID).
		SetResult(&state).
		Get("/paths/file-exists/")
	if err := mapError("file exists", resp, err); err != nil {
		return models.RemoteFileState{}, err
	}
	return state, nil
}

func (c *HTTPClient) GroupStatus(ctx context.Context, groupID string, fileIDs []string) ([]models.RemoteFileState, error) {
	var states []models.RemoteFileState
	resp, err := c.request(ctx).
		SetBody(map[string]any{"group_id": groupID, "file_ids": fileIDs}).
		SetResult(&states).
		Post("/annotations/group/status")
	if err := mapError("group status", resp, err); err != nil {
		return nil, err
	}
	return states, nil
}

func (c *HTTPClient) UploadFile(ctx context.Context, req UploadRequest) (string, error) {
	metadata := "null"
	if len(req.Metadata) > 0 {
		metadata = string(req.Metadata)
	}

	var result struct {
		Path string `json:"path"`
	}
	resp, err := c.request(ctx).
		SetMultipartField("file", req.FileName, req.ContentType, req.Content).
		SetMultipartFormData(map[string]string{
			"file_id":  req.FileID,
			"metadata": metadata,
		}).
		SetResult(&result).
		Post("/paths/upload-file/")
	if err := mapError("upload file", resp, err); err != nil {
		return "", err
	}
	return result.Path, nil
}

func (c *HTTPClient) UpsertGroup(ctx context.Context, group models.GroupMetadata) error {
	return c.post(ctx, "insert group", "/annotations/insert/group", group)
}

func (c *HTTPClient) InsertFile(ctx context.Context, file models.FileAnnotation, path string) error {
	body := struct {
		File models.FileAnnotation `json:"file"`
		Path string                `json:"path"`
	}{File: file, Path: path}
	return c.post(ctx, "insert file", "/annotations/insert/file", body)
}

func (c *HTTPClient) UpdateFileDescriptions(ctx context.Context, file models.FileAnnotation) error {
	return c.post(ctx, "update file descriptions", "/annotations/update/file_descriptions", file)
}

func (c *HTTPClient) UpdateFileTags(ctx context.Context, file models.FileAnnotation) error {
	return c.post(ctx, "update file tags", "/annotations/update/file_tags", file)
}

func (c *HTTPClient) LinkFiles(ctx context.Context, link models.GroupLink) error {
	return c.post(ctx, "insert file groups", "/annotations/insert/file_groups", link)
}

func (c *HTTPClient) DeleteFile(ctx context.Context, fileID string) error {
	return c.post(ctx, "delete file", "/annotations/delete/file", map[string]string{"file_id": fileID})
}

// GetGroup fetches a group saved on the server. Every file it returns is
// marked uploaded.
func (c *HTTPClient) GetGroup(ctx context.Context, groupID string) (*models.AnnotationGroup, error) {
	resp, err := c.request(ctx).
		SetPathParam("group_id", groupID).
		Get("/annotations/group/{group_id}")
	if err := mapError("get group", resp, err); err != nil {
		return nil, err
	}
	var w savedGroup
	if err := json.Unmarshal(resp.Body(), &w); err != nil {
		return nil, fmt.Errorf("get group: %w: %v", ErrBadResponse, err)
	}
	return w.group(groupID), nil
}

func (c *HTTPClient) GroupIDs(ctx context.Context) ([]string, error) {
	var ids []string
	resp, err := c.request(ctx).SetResult(&ids).Get("/annotations/groups/ids")
	if err := mapError("list groups", resp, err); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *HTTPClient) post(ctx context.Context, op, url string, body any) error {
	resp, err := c.request(ctx).SetBody(body).Post(url)
	return mapError(op, resp, err)
}

// mapError turns transport failures and error statuses into the package's
// sentinel errors.
func mapError(op string, resp *resty.Response, err error) error {
	if err != nil {
		if isDecodeError(err) {
			return fmt.Errorf("%s: %w: %v", op, ErrBadResponse, err)
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	if !resp.IsError() {
		return nil
	}

	detail := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.text() != "" {
		detail = e.text()
	}

	var sentinel error
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case code == http.StatusNotFound:
		sentinel = ErrNotFound
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		sentinel = ErrUnavailable
	default:
		sentinel = ErrRejected
	}
	return fmt.Errorf("%s: %w: %s", op, sentinel, detail)
}

func isDecodeError(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ)
}
