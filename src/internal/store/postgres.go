package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/lib/pq"

	"go.uber.org/zap"
)

// IssuePlanner decides, from the locked current state of an issue, what
// should be written. It runs inside the store transaction.
type IssuePlanner func(current model.Issue) model.IssueMutation

type Repository interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, int, error)
	UpdateUserProfile(ctx context.Context, userID string, name, email *string) (model.User, error)
	SetUserPassword(ctx context.Context, userID, passwordHash string) error
	SetUserRole(ctx context.Context, userID string, role model.Role) (model.User, error)
	SetUserIsActive(ctx context.Context, userID string, isActive bool) (model.User, error)
	CountActiveAdmins(ctx context.Context, exceptUserID string) (int, error)

	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	GetProject(ctx context.Context, projectID string) (model.Project, error)
	ListProjects(ctx context.Context, memberID string) ([]model.Project, error)
	UpdateProject(ctx context.Context, projectID string, patch model.ProjectPatch) (model.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	AddProjectMember(ctx context.Context, projectID, userID string) (model.Project, error)
	RemoveProjectMember(ctx context.Context, projectID, userID string) (model.Project, error)

	CreateIssue(ctx context.Context, issue model.Issue) (model.Issue, error)
	GetIssue(ctx context.Context, issueID string) (model.Issue, error)
	ListIssues(ctx context.Context, f IssueFilter) ([]model.Issue, int, error)
	DeleteIssue(ctx context.Context, issueID string) error
	PatchIssue(ctx context.Context, issueID string, patch model.AdminPatch) (model.Issue, error)
	BulkPatchIssues(ctx context.Context, issueIDs []string, patch model.AdminPatch) (model.BulkResult, error)
	MutateAssignedIssue(ctx context.Context, issueID, assigneeID string, plan IssuePlanner) (model.Issue, error)
	QueryHistory(ctx context.Context, actorID string, q model.HistoryQuery) ([]model.HistoryRow, int, error)
	IssueHistory(ctx context.Context, issueID string) ([]model.HistoryEntry, error)

	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, t model.Tag) (model.Tag, error)
	UpdateTag(ctx context.Context, tagID string, name, color *string) (model.Tag, error)
	DeleteTag(ctx context.Context, tagID string) error
	GetSetting(ctx context.Context, key string, dst any) error
	PutSetting(ctx context.Context, key string, value any) error

	GetDashboardStats(ctx context.Context, since time.Time) (model.DashboardStats, error)
}

type Repositories struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewRepositories(db *sql.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		DB:  db,
		Log: logger,
	}
}

func (r *Repositories) BeginTx(ctx context.Context) (*sql.Tx, error) {
	r.Log.Debug("BeginTx called")
	return r.DB.BeginTx(ctx, &sql.TxOptions{})
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repositories) rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.Log.Warn(op+": rollback failed", zap.Error(err))
	}
}

// affectedOne maps an exec that touched no rows to model.ErrNotFound.
func (r *Repositories) affectedOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		r.Log.Error(op+": rows affected failed", zap.Error(err))
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *Repositories) closeRows(rows *sql.Rows, op string) {
	if err := rows.Close(); err != nil {
		r.Log.Error(op+": close rows failed", zap.Error(err))
	}
}

// mapPQError turns constraint violations into domain errors.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return model.ErrConflict
		case "23503":
			return model.ErrInvalidReference
		}
	}
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
