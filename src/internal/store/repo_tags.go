package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"

	"go.uber.org/zap"
)

const tagColumns = `id, name, color, created_at, updated_at`

func scanTag(s scanner) (model.Tag, error) {
	var t model.Tag
	err := s.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *Repositories) ListTags(ctx context.Context) ([]model.Tag, error) {
	r.Log.Debug("ListTags: start")
	rows, err := r.DB.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name`)
	if err != nil {
		r.Log.Error("ListTags: query failed", zap.Error(err))
		return nil, err
	}
	defer r.closeRows(rows, "ListTags")

	out := []model.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			r.Log.Error("ListTags: scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repositories) CreateTag(ctx context.Context, t model.Tag) (model.Tag, error) {
	r.Log.Debug("CreateTag: start", zap.String("name", t.Name))
	created, err := scanTag(r.DB.QueryRowContext(ctx,
		`INSERT INTO tags(id, name, color, created_at, updated_at) VALUES($1,$2,$3,now(),now())
		 RETURNING `+tagColumns, t.ID, t.Name, t.Color))
	if err != nil {
		err = mapPQError(err)
		if !errors.Is(err, model.ErrConflict) {
			r.Log.Error("CreateTag: insert failed", zap.Error(err))
		}
		return model.Tag{}, err
	}
	r.Log.Info("CreateTag: success", zap.String("tag", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (r *Repositories) UpdateTag(ctx context.Context, tagID string, name, color *string) (model.Tag, error) {
	r.Log.Debug("UpdateTag: start", zap.String("tag", tagID))
	if !model.ValidID(tagID) {
		return model.Tag{}, model.ErrNotFound
	}
	t, err := scanTag(r.DB.QueryRowContext(ctx,
		`UPDATE tags SET name=COALESCE($2, name), color=COALESCE($3, color), updated_at=now()
		 WHERE id=$1 RETURNING `+tagColumns, tagID, name, color))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tag{}, model.ErrNotFound
		}
		err = mapPQError(err)
		if !errors.Is(err, model.ErrConflict) {
			r.Log.Error("UpdateTag: update failed", zap.Error(err))
		}
		return model.Tag{}, err
	}
	return t, nil
}

func (r *Repositories) DeleteTag(ctx context.Context, tagID string) error {
	r.Log.Debug("DeleteTag: start", zap.String("tag", tagID))
	if !model.ValidID(tagID) {
		return model.ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID)
	if err != nil {
		r.Log.Error("DeleteTag: delete failed", zap.Error(err))
		return err
	}
	if err := r.affectedOne(res, "DeleteTag"); err != nil {
		return err
	}
	return nil
}

// GetSetting decodes the JSON value stored under key into dst. It returns
// ErrNotFound when the key was never written.
func (r *Repositories) GetSetting(ctx context.Context, key string, dst any) error {
	r.Log.Debug("GetSetting: start", zap.String("key", key))
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		r.Log.Error("GetSetting: query failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (r *Repositories) PutSetting(ctx context.Context, key string, value any) error {
	r.Log.Debug("PutSetting: start", zap.String("key", key))
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO settings(key, value, created_at, updated_at) VALUES($1, $2::jsonb, now(), now())
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, key, string(b))
	if err != nil {
		r.Log.Error("PutSetting: upsert failed", zap.String("key", key), zap.Error(err))
		return err
	}
	r.Log.Info("PutSetting: success", zap.String("key", key))
	return nil
}
