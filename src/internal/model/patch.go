package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// DevPatchRequest is the body accepted by the developer issue endpoint.
// Fields stay raw so that absent, null and mistyped values can be told apart.
type DevPatchRequest struct {
	Status     json.RawMessage `json:"status"`
	AssigneeID json.RawMessage `json:"assigneeId"`
}

// DevPatch is the sanitized developer patch: a settable target status (or
// empty) and whether the assignee asked to be removed.
type DevPatch struct {
	Status        Status
	ClearAssignee bool
}

func (r DevPatchRequest) Sanitize() DevPatch {
	var p DevPatch
	if s, ok := rawString(r.Status); ok && Status(s).DeveloperSettable() {
		p.Status = Status(s)
	}
	p.ClearAssignee = rawClears(r.AssigneeID)
	return p
}

// AdminPatchRequest is the body of the admin single and bulk issue updates.
type AdminPatchRequest struct {
	Status     json.RawMessage `json:"status"`
	Priority   json.RawMessage `json:"priority"`
	Severity   json.RawMessage `json:"severity"`
	AssigneeID json.RawMessage `json:"assigneeId"`
	ProjectID  json.RawMessage `json:"projectId"`
	Tags       json.RawMessage `json:"tags"`
}

// AdminPatch is the allow-listed field set an admin may change. Nil fields are
// left untouched. When AssigneeSet is true a nil AssigneeID clears the assignee.
type AdminPatch struct {
	Status      *Status
	Priority    *Priority
	Severity    *Severity
	AssigneeSet bool
	AssigneeID  *string
	ProjectID   *string
	Tags        []string
	TagsSet     bool
}

func (p AdminPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.Severity == nil &&
		!p.AssigneeSet && p.ProjectID == nil && !p.TagsSet
}

// Sanitize drops every field whose value is missing or invalid.
func (r AdminPatchRequest) Sanitize() AdminPatch {
	var p AdminPatch
	if s, ok := rawString(r.Status); ok && Status(s).Valid() {
		st := Status(s)
		p.Status = &st
	}
	if s, ok := rawString(r.Priority); ok && Priority(s).Valid() {
		pr := Priority(s)
		p.Priority = &pr
	}
	if s, ok := rawString(r.Severity); ok && Severity(s).Valid() {
		sv := Severity(s)
		p.Severity = &sv
	}
	switch {
	case rawClears(r.AssigneeID):
		p.AssigneeSet = true
	default:
		if s, ok := rawString(r.AssigneeID); ok && ValidID(s) {
			p.AssigneeSet = true
			p.AssigneeID = &s
		}
	}
	if s, ok := rawString(r.ProjectID); ok && ValidID(s) {
		p.ProjectID = &s
	}
	if len(r.Tags) > 0 {
		var tags []string
		if err := json.Unmarshal(r.Tags, &tags); err == nil && tags != nil {
			p.Tags = NormalizeTags(tags)
			p.TagsSet = true
		}
	}
	return p
}

// ValidID reports whether s is a well-formed entity id.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, s != ""
}

// rawClears reports whether a present field holds null or an empty string.
func rawClears(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	v := strings.TrimSpace(string(raw))
	return v == "null" || v == `""`
}

// BulkResult reports how many of the requested issues existed and how many
// actually changed.
type BulkResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}
