package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/lib/pq"

	"go.uber.org/zap"
)

const (
	recentIssuesLimit = 10
	topProjectsLimit  = 15
)

func openStatusArgs() pq.StringArray {
	out := make(pq.StringArray, len(model.OpenStatuses))
	for i, s := range model.OpenStatuses {
		out[i] = string(s)
	}
	return out
}

// queryCounts runs a grouped count query and hands every row to scan.
func (r *Repositories) queryCounts(ctx context.Context, logPrefix, query string, scan func(*sql.Rows) error, args ...any) error {
	r.Log.Debug(logPrefix + ": start")
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.Log.Error(logPrefix+": query failed", zap.Error(err))
		return err
	}
	defer r.closeRows(rows, logPrefix)

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			r.Log.Error(logPrefix+": scan failed", zap.Error(err))
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	r.Log.Debug(logPrefix+": success", zap.Int("buckets", n))
	return nil
}

// GetDashboardStats aggregates the admin dashboard. Open means any status but
// CLOSED; since bounds the "new this week" card.
func (r *Repositories) GetDashboardStats(ctx context.Context, since time.Time) (model.DashboardStats, error) {
	open := openStatusArgs()
	stats := model.DashboardStats{
		Charts: model.StatsCharts{
			OpenBySeverity:   []model.SeverityCount{},
			OpenByStatus:     []model.StatusCount{},
			IssuesPerProject: []model.ProjectCount{},
		},
	}

	err := r.DB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM projects),
		        (SELECT COUNT(*) FROM issues WHERE status = ANY($1)),
		        (SELECT COUNT(*) FROM issues WHERE created_at >= $2)`, open, since).
		Scan(&stats.Cards.TotalProjects, &stats.Cards.TotalOpenIssues, &stats.Cards.NewThisWeek)
	if err != nil {
		r.Log.Error("GetDashboardStats: cards failed", zap.Error(err))
		return model.DashboardStats{}, err
	}

	if err := r.queryCounts(ctx, "GetDashboardStats.severity",
		`SELECT severity, COUNT(*) FROM issues WHERE status = ANY($1) GROUP BY severity ORDER BY COUNT(*) DESC, severity`,
		func(rows *sql.Rows) error {
			var c model.SeverityCount
			if err := rows.Scan(&c.Severity, &c.Count); err != nil {
				return err
			}
			stats.Charts.OpenBySeverity = append(stats.Charts.OpenBySeverity, c)
			return nil
		}, open); err != nil {
		return model.DashboardStats{}, err
	}

	if err := r.queryCounts(ctx, "GetDashboardStats.status",
		`SELECT status, COUNT(*) FROM issues WHERE status = ANY($1) GROUP BY status ORDER BY COUNT(*) DESC, status`,
		func(rows *sql.Rows) error {
			var c model.StatusCount
			if err := rows.Scan(&c.Status, &c.Count); err != nil {
				return err
			}
			stats.Charts.OpenByStatus = append(stats.Charts.OpenByStatus, c)
			return nil
		}, open); err != nil {
		return model.DashboardStats{}, err
	}

	if err := r.queryCounts(ctx, "GetDashboardStats.projects",
		`SELECT i.project_id, p.name, p.key, COUNT(*)
		 FROM issues i LEFT JOIN projects p ON p.id = i.project_id
		 GROUP BY i.project_id, p.name, p.key
		 ORDER BY COUNT(*) DESC, p.name NULLS LAST
		 LIMIT $1`,
		func(rows *sql.Rows) error {
			var (
				c         model.ProjectCount
				projectID sql.NullString
				name, key sql.NullString
			)
			if err := rows.Scan(&projectID, &name, &key, &c.Count); err != nil {
				return err
			}
			c.ProjectID = stringPtr(projectID)
			c.Name, c.Key = name.String, key.String
			if !projectID.Valid {
				c.Name = "Unassigned"
			}
			stats.Charts.IssuesPerProject = append(stats.Charts.IssuesPerProject, c)
			return nil
		}, topProjectsLimit); err != nil {
		return model.DashboardStats{}, err
	}

	recent, _, err := r.ListIssues(ctx, IssueFilter{
		Sort:       "-createdAt",
		Pagination: model.Pagination{Page: 1, Limit: recentIssuesLimit},
	})
	if err != nil {
		return model.DashboardStats{}, err
	}
	stats.RecentIssues = recent

	r.Log.Info("GetDashboardStats: success",
		zap.Int("projects", stats.Cards.TotalProjects), zap.Int("open", stats.Cards.TotalOpenIssues))
	return stats, nil
}
