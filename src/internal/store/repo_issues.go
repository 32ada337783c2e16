package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/lib/pq"

	"go.uber.org/zap"
)

type IssueFilter struct {
	Query       string
	SearchTags  bool
	Status      model.Status
	Severity    model.Severity
	Priority    model.Priority
	ProjectID   string
	AssigneeID  string
	Unassigned  bool
	ReporterID  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Sort        string
	model.Pagination
}

var issueSorts = map[string]string{
	"createdAt":  "i.created_at ASC",
	"-createdAt": "i.created_at DESC",
	"severity":   severityRank + " ASC",
	"-severity":  severityRank + " DESC",
	"priority":   "i.priority ASC",
	"-priority":  "i.priority DESC",
	"status":     "i.status ASC",
	"-status":    "i.status DESC",
}

const severityRank = `CASE i.severity WHEN 'Critical' THEN 0 WHEN 'High' THEN 1 WHEN 'Medium' THEN 2 ELSE 3 END`

const issueSelect = `
	SELECT i.id, i.project_id, p.key, p.name, p.url,
	       i.title, i.description, i.steps, i.page_url, i.environment,
	       i.severity, i.priority, i.status,
	       i.reporter_id, r.name, r.email,
	       i.assignee_id, a.name, a.email,
	       i.tags, i.attachments, i.created_at, i.updated_at
	FROM issues i
	LEFT JOIN projects p ON p.id = i.project_id
	LEFT JOIN users r ON r.id = i.reporter_id
	LEFT JOIN users a ON a.id = i.assignee_id`

func scanIssue(s scanner) (model.Issue, error) {
	var (
		i                                              model.Issue
		projectID, projectKey, projectName, projectURL sql.NullString
		reporterName, reporterEmail                    sql.NullString
		assigneeID, assigneeName, assigneeEmail        sql.NullString
		tags                                           pq.StringArray
	)
	err := s.Scan(&i.ID, &projectID, &projectKey, &projectName, &projectURL,
		&i.Title, &i.Description, &i.Steps, &i.PageURL, &i.Environment,
		&i.Severity, &i.Priority, &i.Status,
		&i.ReporterID, &reporterName, &reporterEmail,
		&assigneeID, &assigneeName, &assigneeEmail,
		&tags, &i.Attachments, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return model.Issue{}, err
	}

	i.ProjectID = stringPtr(projectID)
	if projectID.Valid {
		i.Project = &model.ProjectRef{ID: projectID.String, Key: projectKey.String, Name: projectName.String, URL: projectURL.String}
	}
	if reporterName.Valid {
		i.Reporter = &model.UserRef{ID: i.ReporterID, Name: reporterName.String, Email: reporterEmail.String}
	}
	i.AssigneeID = stringPtr(assigneeID)
	if assigneeID.Valid {
		i.Assignee = &model.UserRef{ID: assigneeID.String, Name: assigneeName.String, Email: assigneeEmail.String}
	}
	i.Tags = []string(tags)
	if i.Tags == nil {
		i.Tags = []string{}
	}
	if i.Attachments == nil {
		i.Attachments = model.Attachments{}
	}
	return i, nil
}

func (r *Repositories) CreateIssue(ctx context.Context, issue model.Issue) (model.Issue, error) {
	r.Log.Debug("CreateIssue: start", zap.String("issue", issue.ID), zap.String("reporter", issue.ReporterID))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO issues(id, project_id, title, description, steps, page_url, environment,
		                    severity, priority, status, reporter_id, assignee_id, tags, attachments,
		                    created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())`,
		issue.ID, nullableID(issue.ProjectID), issue.Title, issue.Description, issue.Steps, issue.PageURL,
		issue.Environment, issue.Severity, issue.Priority, issue.Status, issue.ReporterID,
		nullableID(issue.AssigneeID), pq.Array(model.NormalizeTags(issue.Tags)), issue.Attachments)
	if err != nil {
		err = mapPQError(err)
		if !errors.Is(err, model.ErrInvalidReference) {
			r.Log.Error("CreateIssue: insert failed", zap.String("issue", issue.ID), zap.Error(err))
		}
		return model.Issue{}, err
	}
	r.Log.Info("CreateIssue: success", zap.String("issue", issue.ID))
	return r.GetIssue(ctx, issue.ID)
}

func (r *Repositories) GetIssue(ctx context.Context, issueID string) (model.Issue, error) {
	return r.getIssue(ctx, r.DB, "GetIssue", issueSelect+` WHERE i.id=$1`, issueID)
}

func (r *Repositories) getIssue(ctx context.Context, q querier, op, query string, args ...any) (model.Issue, error) {
	r.Log.Debug(op+": start", zap.Any("args", args))
	if id, ok := args[0].(string); ok && !model.ValidID(id) {
		return model.Issue{}, model.ErrNotFound
	}
	issue, err := scanIssue(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug(op+": not found", zap.Any("args", args))
			return model.Issue{}, model.ErrNotFound
		}
		r.Log.Error(op+": query failed", zap.Error(err))
		return model.Issue{}, err
	}
	return issue, nil
}

// buildIssueWhere renders f as a WHERE clause. ok is false when a filter can
// never match, such as a malformed id.
func buildIssueWhere(f IssueFilter) (clause string, args []any, ok bool) {
	var where []string
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	idFilter := func(col, id string) bool {
		if id == "" {
			return true
		}
		if !model.ValidID(id) {
			return false
		}
		where = append(where, col+" = "+arg(id))
		return true
	}

	if f.Query != "" {
		p := arg("%" + escapeLike(f.Query) + "%")
		cond := "i.title ILIKE " + p + " OR i.description ILIKE " + p + " OR i.steps ILIKE " + p
		if f.SearchTags {
			cond += " OR EXISTS (SELECT 1 FROM unnest(i.tags) t WHERE t ILIKE " + p + ")"
		}
		where = append(where, "("+cond+")")
	}
	if f.Status != "" {
		where = append(where, "i.status = "+arg(f.Status))
	}
	if f.Severity != "" {
		where = append(where, "i.severity = "+arg(f.Severity))
	}
	if f.Priority != "" {
		where = append(where, "i.priority = "+arg(f.Priority))
	}
	if !idFilter("i.project_id", f.ProjectID) || !idFilter("i.reporter_id", f.ReporterID) {
		return "", nil, false
	}
	if f.Unassigned {
		where = append(where, "i.assignee_id IS NULL")
	} else if !idFilter("i.assignee_id", f.AssigneeID) {
		return "", nil, false
	}
	if f.CreatedFrom != nil {
		where = append(where, "i.created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		where = append(where, "i.created_at <= "+arg(*f.CreatedTo))
	}

	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	return clause, args, true
}

func (r *Repositories) ListIssues(ctx context.Context, f IssueFilter) ([]model.Issue, int, error) {
	r.Log.Debug("ListIssues: start", zap.String("q", f.Query), zap.String("status", string(f.Status)),
		zap.Int("page", f.Page), zap.Int("limit", f.Limit))

	clause, args, ok := buildIssueWhere(f)
	if !ok {
		r.Log.Debug("ListIssues: filter cannot match")
		return []model.Issue{}, 0, nil
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues i`+clause, args...).Scan(&total); err != nil {
		r.Log.Error("ListIssues: count failed", zap.Error(err))
		return nil, 0, err
	}

	order, known := issueSorts[f.Sort]
	if !known {
		order = issueSorts["-createdAt"]
	}
	n := len(args)
	query := issueSelect + clause + ` ORDER BY ` + order + `, i.id` +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		r.Log.Error("ListIssues: query failed", zap.Error(err))
		return nil, 0, err
	}
	defer r.closeRows(rows, "ListIssues")

	out := []model.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			r.Log.Error("ListIssues: scan failed", zap.Error(err))
			return nil, 0, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	r.Log.Debug("ListIssues: success", zap.Int("count", len(out)), zap.Int("total", total))
	return out, total, nil
}

func (r *Repositories) DeleteIssue(ctx context.Context, issueID string) error {
	r.Log.Debug("DeleteIssue: start", zap.String("issue", issueID))
	if !model.ValidID(issueID) {
		return model.ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM issues WHERE id=$1`, issueID)
	if err != nil {
		r.Log.Error("DeleteIssue: delete failed", zap.Error(err))
		return err
	}
	if err := r.affectedOne(res, "DeleteIssue"); err != nil {
		return err
	}
	r.Log.Info("DeleteIssue: success", zap.String("issue", issueID))
	return nil
}

// adminAssignments renders the SET list for p and, alongside, a condition per
// field that is true only when the stored value differs.
func adminAssignments(p model.AdminPatch, args *[]any) (sets, diffs []string) {
	arg := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}
	add := func(col, cast string, v any) {
		ph := arg(v)
		sets = append(sets, col+" = "+ph+cast)
		diffs = append(diffs, col+" IS DISTINCT FROM "+ph+cast)
	}

	if p.Status != nil {
		add("status", "", string(*p.Status))
	}
	if p.Priority != nil {
		add("priority", "", string(*p.Priority))
	}
	if p.Severity != nil {
		add("severity", "", string(*p.Severity))
	}
	if p.AssigneeSet {
		if p.AssigneeID == nil {
			sets = append(sets, "assignee_id = NULL")
			diffs = append(diffs, "assignee_id IS NOT NULL")
		} else {
			add("assignee_id", "::uuid", *p.AssigneeID)
		}
	}
	if p.ProjectID != nil {
		add("project_id", "::uuid", *p.ProjectID)
	}
	if p.TagsSet {
		add("tags", "::text[]", pq.Array(p.Tags))
	}
	return sets, diffs
}

func (r *Repositories) PatchIssue(ctx context.Context, issueID string, patch model.AdminPatch) (model.Issue, error) {
	r.Log.Debug("PatchIssue: start", zap.String("issue", issueID))
	if !model.ValidID(issueID) {
		return model.Issue{}, model.ErrNotFound
	}
	if patch.Empty() {
		return r.GetIssue(ctx, issueID)
	}

	args := []any{issueID}
	sets, _ := adminAssignments(patch, &args)
	res, err := r.DB.ExecContext(ctx,
		`UPDATE issues SET `+strings.Join(sets, ", ")+`, updated_at=now() WHERE id=$1`, args...)
	if err != nil {
		err = mapPQError(err)
		if !errors.Is(err, model.ErrInvalidReference) {
			r.Log.Error("PatchIssue: update failed", zap.String("issue", issueID), zap.Error(err))
		}
		return model.Issue{}, err
	}
	if err := r.affectedOne(res, "PatchIssue"); err != nil {
		return model.Issue{}, err
	}
	r.Log.Info("PatchIssue: success", zap.String("issue", issueID))
	return r.GetIssue(ctx, issueID)
}

// BulkPatchIssues applies the same patch to every listed issue. Ids that are
// malformed or unknown simply do not match.
func (r *Repositories) BulkPatchIssues(ctx context.Context, issueIDs []string, patch model.AdminPatch) (model.BulkResult, error) {
	r.Log.Debug("BulkPatchIssues: start", zap.Int("ids", len(issueIDs)))

	ids := make([]string, 0, len(issueIDs))
	for _, id := range issueIDs {
		if model.ValidID(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return model.BulkResult{}, nil
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("BulkPatchIssues: begin tx failed", zap.Error(err))
		return model.BulkResult{}, err
	}
	defer r.rollback(tx, "BulkPatchIssues")

	var result model.BulkResult
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issues WHERE id = ANY($1::uuid[])`, pq.Array(ids)).Scan(&result.Matched); err != nil {
		r.Log.Error("BulkPatchIssues: count failed", zap.Error(err))
		return model.BulkResult{}, err
	}

	if !patch.Empty() && result.Matched > 0 {
		args := []any{pq.Array(ids)}
		sets, diffs := adminAssignments(patch, &args)
		res, err := tx.ExecContext(ctx,
			`UPDATE issues SET `+strings.Join(sets, ", ")+`, updated_at=now()
			 WHERE id = ANY($1::uuid[]) AND (`+strings.Join(diffs, " OR ")+`)`, args...)
		if err != nil {
			err = mapPQError(err)
			if !errors.Is(err, model.ErrInvalidReference) {
				r.Log.Error("BulkPatchIssues: update failed", zap.Error(err))
			}
			return model.BulkResult{}, err
		}
		if result.Modified, err = res.RowsAffected(); err != nil {
			r.Log.Error("BulkPatchIssues: rows affected failed", zap.Error(err))
			return model.BulkResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("BulkPatchIssues: commit failed", zap.Error(err))
		return model.BulkResult{}, err
	}
	r.Log.Info("BulkPatchIssues: success", zap.Int64("matched", result.Matched), zap.Int64("modified", result.Modified))
	return result, nil
}
