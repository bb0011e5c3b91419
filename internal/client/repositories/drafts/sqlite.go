package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/dbx"
)

var groupColumns = []string{
	"group_id", "title", "description", "tags", "flow_type", "cover_image_file_id", "created_at", "updated_at",
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, g *models.AnnotationGroup) error {
	tags, err := json.Marshal(g.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags of draft %s: %w", g.GroupID, err)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		upsert := sq.Insert("drafts").
			Columns(groupColumns...).
			Values(g.GroupID, g.Title, g.Description, tags, string(g.FlowType), g.CoverImageFileID,
				g.CreatedAt.UnixNano(), g.UpdatedAt.UnixNano()).
			Suffix(`ON CONFLICT(group_id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				tags = excluded.tags,
				flow_type = excluded.flow_type,
				cover_image_file_id = excluded.cover_image_file_id,
				updated_at = excluded.updated_at`)
		if err := exec(ctx, tx, upsert); err != nil {
			return fmt.Errorf("failed to save draft %s: %w", g.GroupID, err)
		}

		wipe := sq.Delete("draft_files").Where(sq.Eq{"group_id": g.GroupID})
		if err := exec(ctx, tx, wipe); err != nil {
			return fmt.Errorf("failed to clear files of draft %s: %w", g.GroupID, err)
		}

		for i, f := range g.Files {
			if err := insertFile(ctx, tx, g.GroupID, i, f); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertFile(ctx context.Context, tx dbx.DBTX, groupID string, pos int, f models.FileAnnotation) error {
	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags of file %s: %w", f.FileID, err)
	}
	var metadata []byte
	if f.Metadata != nil {
		metadata = f.Metadata
	}

	q := sq.Insert("draft_files").
		Columns("group_id", "file_id", "position", "uri", "description", "tags", "status",
			"added_at", "annotated_at", "uploaded_at", "metadata").
		Values(groupID, f.FileID, pos, f.URI, f.Description, tags, string(f.Status.Normalize()),
			f.AddedAt.UnixNano(), nullTime(f.AnnotatedAt), nullTime(f.UploadedAt), metadata)
	if err := exec(ctx, tx, q); err != nil {
		return fmt.Errorf("failed to save file %s of draft %s: %w", f.FileID, groupID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, groupID string) (*models.AnnotationGroup, error) {
	query, args, err := sq.Select(groupColumns...).From("drafts").Where(sq.Eq{"group_id": groupID}).ToSql()
	if err != nil {
		return nil, err
	}

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft %s: %w", groupID, err)
	}

	if g.Files, err = r.files(ctx, groupID); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.AnnotationGroup, error) {
	query, args, err := sq.Select(groupColumns...).From("drafts").OrderBy("created_at DESC", "group_id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var result []*models.AnnotationGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft row: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draft rows: %w", err)
	}
	rows.Close()

	for _, g := range result {
		if g.Files, err = r.files(ctx, g.GroupID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, groupID string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := exec(ctx, tx, sq.Delete("draft_files").Where(sq.Eq{"group_id": groupID})); err != nil {
			return fmt.Errorf("failed to delete files of draft %s: %w", groupID, err)
		}
		if err := exec(ctx, tx, sq.Delete("drafts").Where(sq.Eq{"group_id": groupID})); err != nil {
			return fmt.Errorf("failed to delete draft %s: %w", groupID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Exists(ctx context.Context, groupID string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").From("drafts").Where(sq.Eq{"group_id": groupID}).ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check draft %s: %w", groupID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) files(ctx context.Context, groupID string) ([]models.FileAnnotation, error) {
	query, args, err := sq.Select("file_id", "uri", "description", "tags", "status",
		"added_at", "annotated_at", "uploaded_at", "metadata").
		From("draft_files").Where(sq.Eq{"group_id": groupID}).OrderBy("position").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load files of draft %s: %w", groupID, err)
	}
	defer rows.Close()

	files := []models.FileAnnotation{}
	for rows.Next() {
		var (
			f                     models.FileAnnotation
			tags, metadata        []byte
			status                string
			addedAt               int64
			annotatedAt, uploaded sql.NullInt64
		)
		if err := rows.Scan(&f.FileID, &f.URI, &f.Description, &tags, &status, &addedAt, &annotatedAt, &uploaded, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan draft file row: %w", err)
		}
		if err := json.Unmarshal(tags, &f.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of file %s: %w", f.FileID, err)
		}
		f.Status = models.FileStatus(status)
		f.AddedAt = fromNanos(addedAt)
		f.AnnotatedAt = fromNullNanos(annotatedAt)
		f.UploadedAt = fromNullNanos(uploaded)
		if metadata != nil {
			f.Metadata = metadata
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draft file rows: %w", err)
	}
	return files, nil
}

func exec(ctx context.Context, db dbx.DBTX, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(s scanner) (*models.AnnotationGroup, error) {
	var (
		g                    models.AnnotationGroup
		tags                 []byte
		flow                 string
		createdAt, updatedAt int64
	)
	if err := s.Scan(&g.GroupID, &g.Title, &g.Description, &tags, &flow, &g.CoverImageFileID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &g.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of draft %s: %w", g.GroupID, err)
	}
	g.FlowType = models.FlowType(flow)
	g.CreatedAt = fromNanos(createdAt)
	g.UpdatedAt = fromNanos(updatedAt)
	return &g, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
