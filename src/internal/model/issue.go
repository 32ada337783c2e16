package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusNew          Status = "NEW"
	StatusOpen         Status = "OPEN"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusReadyForTest Status = "READY_FOR_TEST"
	StatusReopened     Status = "REOPENED"
	StatusClosed       Status = "CLOSED"
)

// OpenStatuses are the statuses counted as unresolved on the dashboard.
var OpenStatuses = []Status{StatusNew, StatusOpen, StatusInProgress, StatusReadyForTest, StatusReopened}

func (s Status) Valid() bool {
	return s == StatusNew || s.DeveloperSettable()
}

// DeveloperSettable reports whether an assignee may move an issue into s.
// NEW is reserved for freshly reported issues.
func (s Status) DeveloperSettable() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusReadyForTest, StatusReopened, StatusClosed:
		return true
	}
	return false
}

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

type Issue struct {
	ID          string         `json:"id"`
	ProjectID   *string        `json:"projectId"`
	Project     *ProjectRef    `json:"project,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Steps       string         `json:"steps"`
	PageURL     string         `json:"pageUrl"`
	Environment string         `json:"environment"`
	Severity    Severity       `json:"severity"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	ReporterID  string         `json:"reporterId"`
	Reporter    *UserRef       `json:"reporter,omitempty"`
	AssigneeID  *string        `json:"assigneeId"`
	Assignee    *UserRef       `json:"assignee,omitempty"`
	Tags        []string       `json:"tags"`
	Attachments Attachments    `json:"attachments"`
	History     []HistoryEntry `json:"history,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// IsAssignedTo reports whether userID is the current assignee.
func (i Issue) IsAssignedTo(userID string) bool {
	return i.AssigneeID != nil && *i.AssigneeID == userID
}

// Attachment is the canonical stored shape. Older records stored a bare url
// string; UnmarshalJSON accepts both.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

func (a *Attachment) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Attachment{URL: s, Name: s}
		return nil
	}
	type plain Attachment
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("attachment: %w", err)
	}
	*a = Attachment(p)
	if a.Name == "" {
		a.Name = a.URL
	}
	return nil
}

type Attachments []Attachment

// Normalize trims urls, defaults names to the url and drops entries without a url.
func (as Attachments) Normalize() Attachments {
	out := make(Attachments, 0, len(as))
	for _, a := range as {
		a.URL = strings.TrimSpace(a.URL)
		if a.URL == "" {
			continue
		}
		if a.Name == "" {
			a.Name = a.URL
		}
		out = append(out, a)
	}
	return out
}

func (as Attachments) Value() (driver.Value, error) {
	b, err := json.Marshal(as.Normalize())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (as *Attachments) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*as = Attachments{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("attachments: unsupported scan type")
	}
	var out Attachments
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*as = out.Normalize()
	return nil
}

// NormalizeTags trims tags, drops blanks and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
