package model

type DashboardStats struct {
	Cards        StatsCards  `json:"cards"`
	Charts       StatsCharts `json:"charts"`
	RecentIssues []Issue     `json:"recentIssues"`
}

type StatsCards struct {
	TotalProjects   int `json:"totalProjects"`
	TotalOpenIssues int `json:"totalOpenIssues"`
	NewThisWeek     int `json:"newThisWeek"`
}

type StatsCharts struct {
	OpenBySeverity   []SeverityCount `json:"openBySeverity"`
	OpenByStatus     []StatusCount   `json:"openByStatus"`
	IssuesPerProject []ProjectCount  `json:"issuesPerProject"`
}

type SeverityCount struct {
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}

type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// ProjectCount groups issues per project; issues without a project are
// reported under a nil ProjectID with the name "Unassigned".
type ProjectCount struct {
	ProjectID *string `json:"projectId"`
	Name      string  `json:"name"`
	Key       string  `json:"key,omitempty"`
	Count     int     `json:"count"`
}
