package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
)

func newTestUI() (*UI, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	return &UI{Out: &buf, ErrOut: &buf}, &buf
}

func TestRenderHistory(t *testing.T) {
	ui, buf := newTestUI()
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	page := model.Page[model.HistoryRow]{
		Items: []model.HistoryRow{
			{
				IssueID: "i1",
				Title:   "Login button misaligned",
				Project: &model.ProjectRef{ID: "p1", Key: "WEB", Name: "Website"},
				Entry:   model.NewStatusChange("u1", model.StatusOpen, model.StatusInProgress, at),
			},
			{
				IssueID: "i2",
				Title:   "Crash on save",
				Entry:   model.NewUnassign("u1", at.Add(-time.Hour)),
			},
		},
		Total: 2, Page: 1, Pages: 1,
	}

	require.NoError(t, ui.RenderHistory(page))
	out := buf.String()

	assert.Contains(t, out, "OPEN -> IN_PROGRESS")
	assert.Contains(t, out, "unassigned")
	assert.Contains(t, out, "WEB")
	assert.Contains(t, out, "Crash on save")
	assert.Contains(t, out, "2025-03-14 09:30:00")
	assert.Contains(t, out, "page 1 of 1 (2 entries)")
}

func TestRenderHistory_Empty(t *testing.T) {
	ui, buf := newTestUI()
	require.NoError(t, ui.RenderHistory(model.Page[model.HistoryRow]{Page: 1, Pages: 1}))
	assert.Equal(t, "No history entries.\n", buf.String())
}

func TestRenderUsers(t *testing.T) {
	ui, buf := newTestUI()
	page := model.Page[model.User]{Items: []model.User{
		{Name: "Dana", Email: "dana@example.com", Role: model.RoleDeveloper, IsActive: true},
		{Name: "Eli", Email: "eli@example.com", Role: model.RoleTester},
	}}
	require.NoError(t, ui.RenderUsers(page))
	out := buf.String()
	assert.Contains(t, out, "dana@example.com")
	assert.Contains(t, out, "DEVELOPER")
	assert.Contains(t, out, "no")
}

func TestStatusColor_Plain(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, "CLOSED", StatusColor(model.StatusClosed))
	assert.Equal(t, "WHATEVER", StatusColor(model.Status("WHATEVER")))
}

func TestUIMessages(t *testing.T) {
	ui, buf := newTestUI()
	ui.Success("created %s", "admin")
	ui.Error("failed")
	assert.Contains(t, buf.String(), "✓ created admin")
	assert.Contains(t, buf.String(), "✗ failed")
}
