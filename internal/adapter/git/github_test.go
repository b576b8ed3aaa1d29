package git

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGitHub creates a GitHubAdapter backed by httptest.
func newTestGitHub(t *testing.T, mux *http.ServeMux) *GitHubAdapter {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	u, _ := url.Parse(server.URL + "/")
	client.BaseURL = u

	return &GitHubAdapter{client: client}
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

var since = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestGitHubDeployments(t *testing.T) {
	mux := http.NewServeMux()
	var pages []string
	mux.HandleFunc("/repos/acme/payments/deployments", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		w.Header().Set("Content-Type", "application/json")
		if page == "2" {
			fmt.Fprint(w, `[{"id": 4, "sha": "old", "environment": "production", "created_at": "2024-12-01T00:00:00Z"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/payments/deployments?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[
			{"id": 1, "sha": "abc", "environment": "production", "created_at": "2025-01-10T00:00:00Z"},
			{"id": 2, "sha": "def", "environment": "staging", "created_at": "2025-01-08T00:00:00Z"},
			{"id": 3, "sha": "ghi", "environment": "production", "created_at": "2025-01-07T00:00:00Z"}
		]`)
	})
	mux.HandleFunc("/repos/acme/payments/deployments/1/statuses", jsonHandler(`[
		{"state": "inactive", "created_at": "2025-01-12T00:00:00Z"},
		{"state": "success", "created_at": "2025-01-10T01:00:00Z"}
	]`))
	mux.HandleFunc("/repos/acme/payments/deployments/2/statuses", jsonHandler(`[
		{"state": "error", "created_at": "2025-01-08T00:30:00Z"}
	]`))
	mux.HandleFunc("/repos/acme/payments/deployments/3/statuses", jsonHandler(`[
		{"state": "pending", "created_at": "2025-01-07T00:05:00Z"}
	]`))
	mux.HandleFunc("/repos/acme/payments/commits/abc", jsonHandler(`{
		"sha": "abc",
		"commit": {"committer": {"date": "2025-01-09T20:00:00Z"}}
	}`))
	mux.HandleFunc("/repos/acme/payments/commits/def", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	adapter := newTestGitHub(t, mux)

	got, err := adapter.Deployments(context.Background(), "acme/payments", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "2"}, pages, "follows the next page until a deployment predates since")
	require.Len(t, got, 2, "pending deployments are skipped")

	assert.Equal(t, metrics.Deployment{
		ID:          "acme/payments/deployments/1",
		Repo:        "acme/payments",
		SHA:         "abc",
		Environment: "production",
		Status:      metrics.DeploySucceeded,
		CommittedAt: time.Date(2025, time.January, 9, 20, 0, 0, 0, time.UTC),
		DeployedAt:  time.Date(2025, time.January, 10, 1, 0, 0, 0, time.UTC),
	}, got[0])

	assert.Equal(t, metrics.DeployFailed, got[1].Status)
	assert.Equal(t, "staging", got[1].Environment)
	assert.True(t, got[1].CommittedAt.Equal(time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC)),
		"unknown commits fall back to the deployment creation time")
}

func TestGitHubDeploymentsAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/payments/deployments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message": "boom"}`)
	})
	adapter := newTestGitHub(t, mux)

	_, err := adapter.Deployments(context.Background(), "acme/payments", since)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list deployments of acme/payments")
}

func TestGitHubIncidents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/payments/issues", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "incident", q.Get("labels"))
		assert.Equal(t, "all", q.Get("state"))
		assert.Equal(t, "2025-01-01T00:00:00Z", q.Get("since"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"number": 7, "title": "checkout down", "state": "closed",
			 "created_at": "2025-01-03T10:00:00Z", "closed_at": "2025-01-03T12:30:00Z"},
			{"number": 8, "title": "search slow", "state": "open",
			 "created_at": "2025-01-05T09:00:00Z"},
			{"number": 9, "title": "hotfix", "state": "open", "created_at": "2025-01-05T09:30:00Z",
			 "pull_request": {"url": "https://api.github.com/repos/acme/payments/pulls/9"}}
		]`)
	})
	adapter := newTestGitHub(t, mux)

	got, err := adapter.Incidents(context.Background(), "acme/payments", "incident", since)
	require.NoError(t, err)
	require.Len(t, got, 2, "pull requests are not incidents")

	assert.Equal(t, "acme/payments/issues/7", got[0].ID)
	assert.Equal(t, "checkout down", got[0].Title)
	require.NotNil(t, got[0].ResolvedAt)
	assert.True(t, got[0].ResolvedAt.Equal(time.Date(2025, time.January, 3, 12, 30, 0, 0, time.UTC)))

	assert.Equal(t, "acme/payments/issues/8", got[1].ID)
	assert.Nil(t, got[1].ResolvedAt)
}

func TestGitHubCommitTime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/payments/commits/abc", jsonHandler(`{
		"sha": "abc",
		"commit": {"committer": {"date": "2025-01-09T20:00:00Z"}}
	}`))
	mux.HandleFunc("/repos/acme/payments/commits/nodate", jsonHandler(`{"sha": "nodate", "commit": {}}`))
	adapter := newTestGitHub(t, mux)
	ctx := context.Background()

	got, err := adapter.CommitTime(ctx, "acme/payments", "abc")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, time.January, 9, 20, 0, 0, 0, time.UTC)))

	_, err = adapter.CommitTime(ctx, "acme/payments", "nodate")
	assert.Error(t, err)

	_, err = adapter.CommitTime(ctx, "acme/payments", "")
	assert.Error(t, err)

	_, err = adapter.CommitTime(ctx, "payments", "abc")
	assert.Error(t, err)
}

func TestStatusFromState(t *testing.T) {
	tests := []struct {
		state string
		want  metrics.DeployStatus
		ok    bool
	}{
		{"success", metrics.DeploySucceeded, true},
		{"SUCCESS", metrics.DeploySucceeded, true},
		{"failure", metrics.DeployFailed, true},
		{"error", metrics.DeployFailed, true},
		{"pending", "", false},
		{"in_progress", "", false},
		{"inactive", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got, ok := StatusFromState(tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := SplitRepo("acme/payments")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "payments", name)

	for _, bad := range []string{"", "acme", "/payments", "acme/", "acme/pay/ments"} {
		_, _, err := SplitRepo(bad)
		assert.Error(t, err, bad)
	}
}

func TestRecordIDs(t *testing.T) {
	assert.Equal(t, "acme/payments/deployments/42", DeploymentID("Acme/Payments", 42))
	assert.Equal(t, "acme/payments/issues/7", IncidentID("acme/payments", 7))
}
