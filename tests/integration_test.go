package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Issue struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Status     string         `json:"status"`
	Severity   string         `json:"severity"`
	Priority   string         `json:"priority"`
	AssigneeID *string        `json:"assigneeId"`
	ReporterID string         `json:"reporterId"`
	Tags       []string       `json:"tags"`
	History    []HistoryEntry `json:"history"`
}

type HistoryEntry struct {
	By     string    `json:"by"`
	Action string    `json:"action"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
}

type HistoryRow struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Project *Project     `json:"project"`
	H       HistoryEntry `json:"h"`
}

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// IntegrationTestSuite runs against a live server. Admin scenarios need an
// account bootstrapped with `bugtracker admin create`, passed in through
// ADMIN_EMAIL and ADMIN_PASSWORD.
type IntegrationTestSuite struct {
	suite.Suite
	baseURL string
	client  *http.Client
}

func (suite *IntegrationTestSuite) SetupSuite() {
	suite.baseURL = os.Getenv("BASE_URL")
	if suite.baseURL == "" {
		suite.baseURL = "http://localhost:8080"
	}
	suite.client = &http.Client{Timeout: 10 * time.Second}
	suite.waitForService()
}

func (suite *IntegrationTestSuite) waitForService() {
	for i := 0; i < 30; i++ {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				fmt.Println("service is ready")
				return
			}
		}
		fmt.Printf("waiting for service... (attempt %d/30)\n", i+1)
		time.Sleep(1 * time.Second)
	}
	suite.T().Fatal("service failed to start within 30 seconds")
}

func (suite *IntegrationTestSuite) adminToken() string {
	email, password := os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		suite.T().Skip("ADMIN_EMAIL and ADMIN_PASSWORD are not set")
	}
	var auth AuthResponse
	status := suite.call(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	}, &auth)
	suite.Require().Equal(http.StatusOK, status, "admin login")
	return auth.Token
}

func (suite *IntegrationTestSuite) register(role string) AuthResponse {
	stamp := time.Now().UnixNano()
	var auth AuthResponse
	status := suite.call(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     fmt.Sprintf("%s %d", role, stamp),
		"email":    fmt.Sprintf("%s-%d@example.com", role, stamp),
		"password": "integration-pass",
		"role":     role,
	}, &auth)
	suite.Require().Equal(http.StatusCreated, status, "register %s", role)
	return auth
}

func (suite *IntegrationTestSuite) createIssue(token, title string) Issue {
	var issue Issue
	status := suite.call(http.MethodPost, "/api/issues", token, map[string]any{
		"title":    title,
		"severity": "High",
		"tags":     []string{"ui", "ui", "login"},
	}, &issue)
	suite.Require().Equal(http.StatusCreated, status, "create issue")
	return issue
}

func (suite *IntegrationTestSuite) TestDeveloperWorkflow() {
	t := suite.T()
	admin := suite.adminToken()
	dev := suite.register("DEVELOPER")
	tester := suite.register("TESTER")

	issue := suite.createIssue(tester.Token, "Login button misaligned")
	assert.Equal(t, "NEW", issue.Status)
	assert.Equal(t, "P3", issue.Priority)
	assert.ElementsMatch(t, []string{"ui", "login"}, issue.Tags)

	var patched Issue
	status := suite.call(http.MethodPatch, "/api/admin/issues/"+issue.ID, admin, map[string]any{
		"status": "OPEN", "assigneeId": dev.User.ID,
	}, &patched)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, patched.AssigneeID)
	assert.Equal(t, dev.User.ID, *patched.AssigneeID)

	var assigned Page[Issue]
	status = suite.call(http.MethodGet, "/api/dev/issues", dev.Token, nil, &assigned)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, assigned.Total)

	status = suite.call(http.MethodPatch, "/api/dev/issues/"+issue.ID, dev.Token, map[string]any{
		"status": "IN_PROGRESS",
	}, &patched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "IN_PROGRESS", patched.Status)

	// same status again writes nothing
	status = suite.call(http.MethodPatch, "/api/dev/issues/"+issue.ID, dev.Token, map[string]any{
		"status": "IN_PROGRESS",
	}, &patched)
	require.Equal(t, http.StatusOK, status)

	status = suite.call(http.MethodPatch, "/api/dev/issues/"+issue.ID, dev.Token, map[string]any{
		"assigneeId": nil,
	}, &patched)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, patched.AssigneeID)

	status = suite.call(http.MethodPatch, "/api/dev/issues/"+issue.ID, dev.Token, map[string]any{
		"status": "CLOSED",
	}, nil)
	assert.Equal(t, http.StatusNotFound, status, "unassigned developer cannot patch")

	var feed Page[HistoryRow]
	status = suite.call(http.MethodGet, "/api/dev/history?action=status_change", dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, feed.Total)
	assert.Equal(t, "OPEN", feed.Items[0].H.From)
	assert.Equal(t, "IN_PROGRESS", feed.Items[0].H.To)
	assert.Equal(t, issue.ID, feed.Items[0].ID)

	status = suite.call(http.MethodGet, "/api/dev/history", dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, feed.Total)
	assert.Equal(t, "unassign", feed.Items[0].H.Action)

	var detail Issue
	status = suite.call(http.MethodGet, "/api/issues/"+issue.ID, tester.Token, nil, &detail)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, detail.History, 2)
}

func (suite *IntegrationTestSuite) TestHistoryFeedPagingAndFilters() {
	t := suite.T()
	admin := suite.adminToken()
	dev := suite.register("DEVELOPER")
	tester := suite.register("TESTER")
	stamp := time.Now().UnixNano()

	var project Project
	status := suite.call(http.MethodPost, "/api/admin/projects", admin, map[string]string{
		"name": fmt.Sprintf("Shop %d", stamp), "key": fmt.Sprintf("S%d", stamp),
	}, &project)
	require.Equal(t, http.StatusCreated, status)

	var promo, lookalike Issue
	status = suite.call(http.MethodPost, "/api/issues", tester.Token, map[string]any{
		"title": fmt.Sprintf("Promo 50%%_off %d", stamp), "projectId": project.ID,
	}, &promo)
	require.Equal(t, http.StatusCreated, status)
	status = suite.call(http.MethodPost, "/api/issues", tester.Token, map[string]any{
		"title": fmt.Sprintf("Promo 50Xoff %d", stamp),
	}, &lookalike)
	require.Equal(t, http.StatusCreated, status)

	for _, id := range []string{promo.ID, lookalike.ID} {
		status = suite.call(http.MethodPatch, "/api/admin/issues/"+id, admin, map[string]any{
			"status": "OPEN", "assigneeId": dev.User.ID,
		}, nil)
		require.Equal(t, http.StatusOK, status)
	}

	// 25 changes on the promo issue, alternating IN_PROGRESS and OPEN
	for k := 1; k <= 25; k++ {
		target := "OPEN"
		if k%2 == 1 {
			target = "IN_PROGRESS"
		}
		status = suite.call(http.MethodPatch, "/api/dev/issues/"+promo.ID, dev.Token, map[string]any{"status": target}, nil)
		require.Equal(t, http.StatusOK, status)
	}
	status = suite.call(http.MethodPatch, "/api/dev/issues/"+lookalike.ID, dev.Token, map[string]any{"status": "CLOSED"}, nil)
	require.Equal(t, http.StatusOK, status)

	var feed Page[HistoryRow]
	status = suite.call(http.MethodGet, "/api/dev/history", dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 26, feed.Total)

	var all []HistoryRow
	for page := 1; page <= 3; page++ {
		path := fmt.Sprintf("/api/dev/history?projectId=%s&page=%d&limit=10", project.ID, page)
		status = suite.call(http.MethodGet, path, dev.Token, nil, &feed)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, 25, feed.Total)
		assert.Equal(t, 3, feed.Pages)
		assert.Equal(t, page, feed.Page)
		all = append(all, feed.Items...)
	}
	require.Len(t, all, 25)
	for i, row := range all {
		assert.Equal(t, promo.ID, row.ID)
		require.NotNil(t, row.Project)
		assert.Equal(t, project.ID, row.Project.ID)
		// newest first: position i holds change 25-i
		expected := "OPEN"
		if (25-i)%2 == 1 {
			expected = "IN_PROGRESS"
		}
		assert.Equal(t, expected, row.H.To, "position %d", i)
		if i > 0 {
			assert.False(t, row.H.At.After(all[i-1].H.At), "feed must be newest first")
		}
	}

	q := url.QueryEscape(fmt.Sprintf("50%%_off %d", stamp))
	status = suite.call(http.MethodGet, "/api/dev/history?q="+q, dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 25, feed.Total, "%% and _ in q match literally")

	q = url.QueryEscape(fmt.Sprintf("50xOFF %d", stamp))
	status = suite.call(http.MethodGet, "/api/dev/history?q="+q, dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, feed.Total, "title search ignores case")
	assert.Equal(t, lookalike.ID, feed.Items[0].ID)

	status = suite.call(http.MethodGet, "/api/dev/history?projectId=not-a-uuid", dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, feed.Total)
	assert.Empty(t, feed.Items)
	assert.Equal(t, 1, feed.Pages)

	status = suite.call(http.MethodGet, "/api/dev/history?page=4611686018427387904", dev.Token, nil, &feed)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, feed.Items)
}

func (suite *IntegrationTestSuite) TestBulkPatch() {
	t := suite.T()
	admin := suite.adminToken()
	tester := suite.register("TESTER")

	a := suite.createIssue(tester.Token, "Bulk A")
	b := suite.createIssue(tester.Token, "Bulk B")

	var res struct {
		Matched  int `json:"matched"`
		Modified int `json:"modified"`
	}
	status := suite.call(http.MethodPost, "/api/admin/issues/bulk", admin, map[string]any{
		"ids":   []string{a.ID, b.ID, "00000000-0000-0000-0000-000000000000", "not-an-id"},
		"patch": map[string]any{"priority": "P0", "owner": "ignored"},
	}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Modified)

	status = suite.call(http.MethodPost, "/api/admin/issues/bulk", admin, map[string]any{
		"ids":   []string{a.ID, b.ID},
		"patch": map[string]any{"priority": "P0"},
	}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 0, res.Modified)
}

func (suite *IntegrationTestSuite) TestAccessControl() {
	t := suite.T()
	tester := suite.register("TESTER")
	other := suite.register("TESTER")

	status := suite.call(http.MethodGet, "/api/dev/issues", tester.Token, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = suite.call(http.MethodGet, "/api/admin/stats", tester.Token, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = suite.call(http.MethodGet, "/api/issues", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	issue := suite.createIssue(tester.Token, "Only mine to delete")
	status = suite.call(http.MethodDelete, "/api/issues/"+issue.ID, other.Token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = suite.call(http.MethodDelete, "/api/issues/"+issue.ID, tester.Token, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status = suite.call(http.MethodGet, "/api/issues/"+issue.ID, tester.Token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func (suite *IntegrationTestSuite) TestRegistrationErrors() {
	t := suite.T()
	user := suite.register("TESTER")

	status := suite.call(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "dup", "email": user.User.Email, "password": "x",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = suite.call(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": user.User.Email, "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = suite.call(http.MethodPost, "/api/issues", user.Token, map[string]string{"title": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// call sends a JSON request and decodes the response into out when it is
// non-nil and the request succeeded.
func (suite *IntegrationTestSuite) call(method, path, token string, body, out any) int {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, suite.baseURL+path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		suite.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration tests need a running server")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
