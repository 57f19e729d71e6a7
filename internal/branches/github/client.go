package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/depscope/depscope-backend/internal/branches/domain"
)

// Client lists repository branches from the GitHub API. All calls go
// through a shared limiter to stay clear of the API's secondary rate
// limits.
type Client struct {
	gh      *gh.Client
	limiter *rate.Limiter
}

// NewClient creates a GitHub branch-listing client. An empty token
// falls back to unauthenticated requests with their lower quota.
func NewClient(token string) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{
		gh:      gh.NewClient(httpClient),
		limiter: rate.NewLimiter(rate.Limit(4), 8),
	}
}

// ListBranches fetches one branch page. The declared default branch is
// resolved on the first page only; hasMore comes from the paging
// metadata of the response.
func (c *Client) ListBranches(ctx context.Context, owner, repo string, page int) (domain.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Page{}, fmt.Errorf("rate limiter: %w", err)
	}

	opts := &gh.BranchListOptions{
		ListOptions: gh.ListOptions{Page: page, PerPage: domain.PageSize},
	}
	branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opts)
	if err != nil {
		if isNotFound(err) {
			return domain.Page{}, fmt.Errorf("%w: %s/%s", domain.ErrRepoNotFound, owner, repo)
		}
		return domain.Page{}, fmt.Errorf("list branches: %w", err)
	}

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.GetName())
	}

	out := domain.Page{
		Branches: names,
		HasMore:  resp.NextPage > 0,
	}
	if page <= 1 {
		out.DefaultBranch = c.defaultBranch(ctx, owner, repo)
	}
	return out, nil
}

// defaultBranch asks the repository metadata for its default branch.
// Failures only lose the default-branch prepend, never the page.
func (c *Client) defaultBranch(ctx context.Context, owner, repo string) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return ""
	}
	info, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return ""
	}
	return info.GetDefaultBranch()
}

func isNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == http.StatusNotFound
	}
	return false
}
