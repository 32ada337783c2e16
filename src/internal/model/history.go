package model

import "time"

type HistoryAction string

const (
	ActionStatusChange HistoryAction = "status_change"
	ActionUnassign     HistoryAction = "unassign"
)

func (a HistoryAction) Valid() bool {
	return a == ActionStatusChange || a == ActionUnassign
}

// HistoryEntry is one immutable audit record of an issue. From and To are
// only set for status changes.
type HistoryEntry struct {
	By     string        `json:"by"`
	Action HistoryAction `json:"action"`
	From   Status        `json:"from,omitempty"`
	To     Status        `json:"to,omitempty"`
	At     time.Time     `json:"at"`
}

func NewStatusChange(by string, from, to Status, at time.Time) HistoryEntry {
	return HistoryEntry{By: by, Action: ActionStatusChange, From: from, To: to, At: at}
}

func NewUnassign(by string, at time.Time) HistoryEntry {
	return HistoryEntry{By: by, Action: ActionUnassign, At: at}
}

// IssueMutation is what the transition guard decided to write for one issue.
// The store applies it and appends History in a single transaction.
type IssueMutation struct {
	Status        *Status
	ClearAssignee bool
	History       []HistoryEntry
}

func (m IssueMutation) Empty() bool {
	return m.Status == nil && !m.ClearAssignee && len(m.History) == 0
}

// HistoryRow is one entry of a developer's audit feed joined with issue context.
type HistoryRow struct {
	IssueID     string       `json:"id"`
	Title       string       `json:"title"`
	PageURL     string       `json:"pageUrl"`
	Attachments Attachments  `json:"attachments"`
	Project     *ProjectRef  `json:"project"`
	Entry       HistoryEntry `json:"h"`
}

type HistoryQuery struct {
	Action    HistoryAction
	ProjectID string
	Q         string
	Pagination
}
