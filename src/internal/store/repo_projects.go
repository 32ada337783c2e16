package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/lib/pq"

	"go.uber.org/zap"
)

const projectColumns = `id, name, key, description, url, created_at, updated_at`

func scanProject(s scanner) (model.Project, error) {
	var p model.Project
	err := s.Scan(&p.ID, &p.Name, &p.Key, &p.Description, &p.URL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repositories) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	r.Log.Debug("CreateProject: start", zap.String("key", p.Key))
	created, err := scanProject(r.DB.QueryRowContext(ctx,
		`INSERT INTO projects(id, name, key, description, url, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,now(),now()) RETURNING `+projectColumns,
		p.ID, p.Name, p.Key, p.Description, p.URL))
	if err != nil {
		err = mapPQError(err)
		if !errors.Is(err, model.ErrConflict) {
			r.Log.Error("CreateProject: insert failed", zap.Error(err))
		}
		return model.Project{}, err
	}
	created.Members = []model.UserRef{}
	r.Log.Info("CreateProject: success", zap.String("project", created.ID), zap.String("key", created.Key))
	return created, nil
}

func (r *Repositories) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	r.Log.Debug("GetProject: start", zap.String("project", projectID))
	if !model.ValidID(projectID) {
		return model.Project{}, model.ErrNotFound
	}
	p, err := scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetProject: not found", zap.String("project", projectID))
			return model.Project{}, model.ErrNotFound
		}
		r.Log.Error("GetProject: query failed", zap.Error(err))
		return model.Project{}, err
	}
	projects := []model.Project{p}
	if err := r.loadMembers(ctx, projects); err != nil {
		return model.Project{}, err
	}
	return projects[0], nil
}

// ListProjects returns every project when memberID is empty, otherwise only
// the projects memberID belongs to. Admin listings are newest first, member
// listings are sorted by name.
func (r *Repositories) ListProjects(ctx context.Context, memberID string) ([]model.Project, error) {
	r.Log.Debug("ListProjects: start", zap.String("member", memberID))
	var (
		rows *sql.Rows
		err  error
	)
	if memberID == "" {
		rows, err = r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	} else {
		if !model.ValidID(memberID) {
			return []model.Project{}, nil
		}
		rows, err = r.DB.QueryContext(ctx,
			`SELECT `+projectColumns+` FROM projects p
			 WHERE EXISTS (SELECT 1 FROM project_members m WHERE m.project_id=p.id AND m.user_id=$1)
			 ORDER BY name`, memberID)
	}
	if err != nil {
		r.Log.Error("ListProjects: query failed", zap.Error(err))
		return nil, err
	}
	defer r.closeRows(rows, "ListProjects")

	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.Log.Error("ListProjects: scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, out); err != nil {
		return nil, err
	}
	r.Log.Debug("ListProjects: success", zap.Int("count", len(out)))
	return out, nil
}

func (r *Repositories) loadMembers(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]string, len(projects))
	idx := make(map[string]int, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
		idx[projects[i].ID] = i
		projects[i].Members = []model.UserRef{}
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.project_id, u.id, u.name, u.email, u.role
		 FROM project_members m JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = ANY($1::uuid[])
		 ORDER BY u.name`, pq.Array(ids))
	if err != nil {
		r.Log.Error("loadMembers: query failed", zap.Error(err))
		return err
	}
	defer r.closeRows(rows, "loadMembers")

	for rows.Next() {
		var projectID string
		var m model.UserRef
		if err := rows.Scan(&projectID, &m.ID, &m.Name, &m.Email, &m.Role); err != nil {
			r.Log.Error("loadMembers: scan failed", zap.Error(err))
			return err
		}
		i := idx[projectID]
		projects[i].Members = append(projects[i].Members, m)
	}
	return rows.Err()
}

func (r *Repositories) UpdateProject(ctx context.Context, projectID string, patch model.ProjectPatch) (model.Project, error) {
	r.Log.Debug("UpdateProject: start", zap.String("project", projectID))
	if !model.ValidID(projectID) {
		return model.Project{}, model.ErrNotFound
	}
	_, err := scanProject(r.DB.QueryRowContext(ctx,
		`UPDATE projects SET
		   name=COALESCE($2, name),
		   key=COALESCE($3, key),
		   description=COALESCE($4, description),
		   url=COALESCE($5, url),
		   updated_at=now()
		 WHERE id=$1 RETURNING `+projectColumns,
		projectID, patch.Name, patch.Key, patch.Description, patch.URL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, model.ErrNotFound
		}
		err = mapPQError(err)
		if !errors.Is(err, model.ErrConflict) {
			r.Log.Error("UpdateProject: update failed", zap.Error(err))
		}
		return model.Project{}, err
	}
	r.Log.Info("UpdateProject: success", zap.String("project", projectID))
	return r.GetProject(ctx, projectID)
}

func (r *Repositories) DeleteProject(ctx context.Context, projectID string) error {
	r.Log.Debug("DeleteProject: start", zap.String("project", projectID))
	if !model.ValidID(projectID) {
		return model.ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		r.Log.Error("DeleteProject: delete failed", zap.Error(err))
		return err
	}
	if err := r.affectedOne(res, "DeleteProject"); err != nil {
		return err
	}
	r.Log.Info("DeleteProject: success", zap.String("project", projectID))
	return nil
}

func (r *Repositories) AddProjectMember(ctx context.Context, projectID, userID string) (model.Project, error) {
	r.Log.Debug("AddProjectMember: start", zap.String("project", projectID), zap.String("user", userID))
	if !model.ValidID(projectID) || !model.ValidID(userID) {
		return model.Project{}, model.ErrNotFound
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO project_members(project_id, user_id) VALUES($1,$2) ON CONFLICT DO NOTHING`,
		projectID, userID)
	if err != nil {
		if errors.Is(mapPQError(err), model.ErrInvalidReference) {
			return model.Project{}, model.ErrNotFound
		}
		r.Log.Error("AddProjectMember: insert failed", zap.Error(err))
		return model.Project{}, err
	}
	return r.GetProject(ctx, projectID)
}

func (r *Repositories) RemoveProjectMember(ctx context.Context, projectID, userID string) (model.Project, error) {
	r.Log.Debug("RemoveProjectMember: start", zap.String("project", projectID), zap.String("user", userID))
	if !model.ValidID(projectID) {
		return model.Project{}, model.ErrNotFound
	}
	if model.ValidID(userID) {
		if _, err := r.DB.ExecContext(ctx,
			`DELETE FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID); err != nil {
			r.Log.Error("RemoveProjectMember: delete failed", zap.Error(err))
			return model.Project{}, err
		}
	}
	return r.GetProject(ctx, projectID)
}
