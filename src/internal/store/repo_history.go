package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"

	"go.uber.org/zap"
)

// MutateAssignedIssue locks the issue row only if assigneeID currently owns
// it, lets plan decide the mutation from the locked state and writes the
// field changes together with the history rows before releasing the lock.
// A missing issue and an issue assigned to someone else both yield ErrNotFound.
func (r *Repositories) MutateAssignedIssue(ctx context.Context, issueID, assigneeID string, plan IssuePlanner) (model.Issue, error) {
	r.Log.Debug("MutateAssignedIssue: start", zap.String("issue", issueID), zap.String("assignee", assigneeID))
	if !model.ValidID(issueID) || !model.ValidID(assigneeID) {
		return model.Issue{}, model.ErrNotFound
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("MutateAssignedIssue: begin tx failed", zap.Error(err))
		return model.Issue{}, err
	}
	defer r.rollback(tx, "MutateAssignedIssue")

	current, err := r.getIssue(ctx, tx, "MutateAssignedIssue",
		issueSelect+` WHERE i.id=$1 AND i.assignee_id=$2 FOR UPDATE OF i`, issueID, assigneeID)
	if err != nil {
		return model.Issue{}, err
	}

	m := plan(current)
	if m.Empty() {
		if err := tx.Commit(); err != nil {
			return model.Issue{}, err
		}
		r.Log.Debug("MutateAssignedIssue: nothing to apply", zap.String("issue", issueID))
		return current, nil
	}

	var status any
	if m.Status != nil {
		status = string(*m.Status)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE issues SET
		   status = COALESCE($2, status),
		   assignee_id = CASE WHEN $3 THEN NULL ELSE assignee_id END,
		   updated_at = now()
		 WHERE id=$1`, issueID, status, m.ClearAssignee); err != nil {
		r.Log.Error("MutateAssignedIssue: update failed", zap.String("issue", issueID), zap.Error(err))
		return model.Issue{}, err
	}

	for _, h := range m.History {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO issue_history(issue_id, by_user, action, from_status, to_status, at)
			 VALUES($1,$2,$3,$4,$5,$6)`,
			issueID, h.By, h.Action, nullString(string(h.From)), nullString(string(h.To)), h.At); err != nil {
			r.Log.Error("MutateAssignedIssue: history insert failed", zap.String("issue", issueID), zap.Error(err))
			return model.Issue{}, err
		}
	}

	updated, err := r.getIssue(ctx, tx, "MutateAssignedIssue", issueSelect+` WHERE i.id=$1`, issueID)
	if err != nil {
		return model.Issue{}, err
	}
	if err := tx.Commit(); err != nil {
		r.Log.Error("MutateAssignedIssue: commit failed", zap.Error(err))
		return model.Issue{}, err
	}
	r.Log.Info("MutateAssignedIssue: success", zap.String("issue", issueID), zap.Int("history", len(m.History)))
	return updated, nil
}

// QueryHistory returns the history rows written by actorID across all issues,
// newest first. Rows with the same timestamp keep reverse append order.
func (r *Repositories) QueryHistory(ctx context.Context, actorID string, q model.HistoryQuery) ([]model.HistoryRow, int, error) {
	r.Log.Debug("QueryHistory: start", zap.String("actor", actorID), zap.String("action", string(q.Action)),
		zap.String("project", q.ProjectID), zap.Int("page", q.Page), zap.Int("limit", q.Limit))

	if !model.ValidID(actorID) || (q.ProjectID != "" && !model.ValidID(q.ProjectID)) {
		return []model.HistoryRow{}, 0, nil
	}

	args := []any{actorID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	where := []string{"h.by_user = $1"}
	if q.Action != "" {
		where = append(where, "h.action = "+arg(q.Action))
	}
	if q.ProjectID != "" {
		where = append(where, "i.project_id = "+arg(q.ProjectID))
	}
	if q.Q != "" {
		where = append(where, "i.title ILIKE "+arg("%"+escapeLike(q.Q)+"%"))
	}
	from := ` FROM issue_history h JOIN issues i ON i.id = h.issue_id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		r.Log.Error("QueryHistory: count failed", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT h.issue_id, i.title, i.page_url, i.attachments,
	                 p.id, p.key, p.name, p.url,
	                 h.by_user, h.action, h.from_status, h.to_status, h.at` +
		strings.Replace(from, " WHERE ", " LEFT JOIN projects p ON p.id = i.project_id WHERE ", 1) +
		` ORDER BY h.at DESC, h.seq DESC LIMIT ` + arg(q.Limit) + ` OFFSET ` + arg(q.Offset())
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.Log.Error("QueryHistory: query failed", zap.Error(err))
		return nil, 0, err
	}
	defer r.closeRows(rows, "QueryHistory")

	out := []model.HistoryRow{}
	for rows.Next() {
		var (
			row                                            model.HistoryRow
			projectID, projectKey, projectName, projectURL sql.NullString
			fromStatus, toStatus                           sql.NullString
		)
		if err := rows.Scan(&row.IssueID, &row.Title, &row.PageURL, &row.Attachments,
			&projectID, &projectKey, &projectName, &projectURL,
			&row.Entry.By, &row.Entry.Action, &fromStatus, &toStatus, &row.Entry.At); err != nil {
			r.Log.Error("QueryHistory: scan failed", zap.Error(err))
			return nil, 0, err
		}
		if projectID.Valid {
			row.Project = &model.ProjectRef{ID: projectID.String, Key: projectKey.String, Name: projectName.String, URL: projectURL.String}
		}
		row.Entry.From = model.Status(fromStatus.String)
		row.Entry.To = model.Status(toStatus.String)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	r.Log.Debug("QueryHistory: success", zap.Int("count", len(out)), zap.Int("total", total))
	return out, total, nil
}

// IssueHistory lists the full history of one issue in append order.
func (r *Repositories) IssueHistory(ctx context.Context, issueID string) ([]model.HistoryEntry, error) {
	if !model.ValidID(issueID) {
		return nil, model.ErrNotFound
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT by_user, action, from_status, to_status, at FROM issue_history WHERE issue_id=$1 ORDER BY seq`, issueID)
	if err != nil {
		r.Log.Error("IssueHistory: query failed", zap.Error(err))
		return nil, err
	}
	defer r.closeRows(rows, "IssueHistory")

	out := []model.HistoryEntry{}
	for rows.Next() {
		var h model.HistoryEntry
		var from, to sql.NullString
		if err := rows.Scan(&h.By, &h.Action, &from, &to, &h.At); err != nil {
			return nil, err
		}
		h.From, h.To = model.Status(from.String), model.Status(to.String)
		out = append(out, h)
	}
	return out, rows.Err()
}
