package git

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rigdev/pulse/internal/metrics"
)

const perPage = 100

// GitHubAdapter implements Source using the GitHub REST API.
type GitHubAdapter struct {
	client *github.Client
}

// NewGitHub creates a new GitHubAdapter.
// baseURL can be empty for github.com or a custom URL for GitHub Enterprise.
func NewGitHub(token, baseURL string) (*GitHubAdapter, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("create github enterprise client: %w", err)
		}
	}

	return &GitHubAdapter{client: client}, nil
}

// Deployments lists deployments newest first and stops at the first one
// created before since. Deployments without a final status are skipped.
func (g *GitHubAdapter) Deployments(ctx context.Context, repo string, since time.Time) ([]metrics.Deployment, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var out []metrics.Deployment
	opts := &github.DeploymentsListOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	for {
		page, resp, err := g.client.Repositories.ListDeployments(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list deployments of %s: %w", repo, err)
		}

		for _, d := range page {
			if d.GetCreatedAt().Time.Before(since) {
				return out, nil
			}
			status, err := g.finalStatus(ctx, owner, name, d.GetID())
			if err != nil {
				return nil, err
			}
			if status == nil {
				continue
			}
			dep, ok := deploymentFrom(repo, d, status)
			if !ok {
				continue
			}
			committed, err := g.CommitTime(ctx, repo, d.GetSHA())
			if err == nil {
				dep.CommittedAt = committed
			}
			out = append(out, dep)
		}

		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// finalStatus returns the newest success, failure or error status, or nil.
func (g *GitHubAdapter) finalStatus(ctx context.Context, owner, name string, id int64) (*github.DeploymentStatus, error) {
	opts := &github.ListOptions{PerPage: perPage}
	for {
		statuses, resp, err := g.client.Repositories.ListDeploymentStatuses(ctx, owner, name, id, opts)
		if err != nil {
			return nil, fmt.Errorf("list statuses of deployment %d: %w", id, err)
		}
		for _, s := range statuses {
			if _, ok := StatusFromState(s.GetState()); ok {
				return s, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// deploymentFrom builds a record from a deployment and its final status.
// The commit time defaults to the deployment creation time.
func deploymentFrom(repo string, d *github.Deployment, s *github.DeploymentStatus) (metrics.Deployment, bool) {
	status, ok := StatusFromState(s.GetState())
	if !ok {
		return metrics.Deployment{}, false
	}
	return metrics.Deployment{
		ID:          DeploymentID(repo, d.GetID()),
		Repo:        repo,
		SHA:         d.GetSHA(),
		Environment: d.GetEnvironment(),
		Status:      status,
		CommittedAt: d.GetCreatedAt().Time,
		DeployedAt:  s.GetCreatedAt().Time,
	}, true
}

// Incidents lists labelled issues in any state. Pull requests are skipped.
func (g *GitHubAdapter) Incidents(ctx context.Context, repo, label string, since time.Time) ([]metrics.Incident, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var out []metrics.Incident
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{label},
		Since:       since,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list incidents of %s: %w", repo, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, incidentFrom(repo, issue))
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func incidentFrom(repo string, issue *github.Issue) metrics.Incident {
	inc := metrics.Incident{
		ID:       IncidentID(repo, issue.GetNumber()),
		Title:    issue.GetTitle(),
		OpenedAt: issue.GetCreatedAt().Time,
	}
	if issue.GetState() == "closed" && issue.ClosedAt != nil {
		closed := issue.GetClosedAt().Time
		inc.ResolvedAt = &closed
	}
	return inc
}

// CommitTime returns the committer date of sha.
func (g *GitHubAdapter) CommitTime(ctx context.Context, repo, sha string) (time.Time, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return time.Time{}, err
	}
	if sha == "" {
		return time.Time{}, fmt.Errorf("commit of %s: empty sha", repo)
	}

	commit, _, err := g.client.Repositories.GetCommit(ctx, owner, name, sha, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("get commit %s of %s: %w", sha, repo, err)
	}
	date := commit.GetCommit().GetCommitter().GetDate().Time
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("commit %s of %s has no date", sha, repo)
	}
	return date, nil
}
