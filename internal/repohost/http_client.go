package repohost

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// requestsPerSecond bounds outbound calls to the repo host so a runaway
// agent loop (batch tool fan-out, §4.F) can't hammer it; burst allows a
// batch's initial fan-out to proceed without stalling on the first call.
const requestsPerSecond = 10

// HTTPClient implements Client over a REST-ish repo-host API using
// go-resty, following the repo-host dependency the broader example pack
// pulls in for this kind of outbound capability set (see DESIGN.md).
type HTTPClient struct {
	rc    *resty.Client
	token string
	limit *rate.Limiter
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("authorization", "Bearer "+token).
		SetHeader("accept", "application/json")
	return &HTTPClient{rc: rc, token: token, limit: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond*2)}
}

func (c *HTTPClient) wait(ctx context.Context) error {
	return c.limit.Wait(ctx)
}

func (c *HTTPClient) repoPath(owner, repo string) string {
	return fmt.Sprintf("/repos/%s/%s", owner, repo)
}

func (c *HTTPClient) BranchExists(ctx context.Context, owner, repo, branchName string) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	resp, err := c.rc.R().SetContext(ctx).
		Get(c.repoPath(owner, repo) + "/branches/" + branchName)
	if err != nil {
		return false, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	if resp.IsError() {
		return false, fmt.Errorf("repohost: branch lookup failed: status %d", resp.StatusCode())
	}
	return true, nil
}

func (c *HTTPClient) CreateBranch(ctx context.Context, owner, repo, branchName string) error {
	exists, err := c.BranchExists(ctx, owner, repo, branchName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	resp, err := c.rc.R().SetContext(ctx).
		SetBody(map[string]string{"name": branchName, "from": "default"}).
		Post(c.repoPath(owner, repo) + "/branches")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("repohost: create branch failed: status %d", resp.StatusCode())
	}
	return nil
}

func (c *HTTPClient) ReadFile(ctx context.Context, owner, repo, branch, path string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.rc.R().SetContext(ctx).
		SetQueryParam("ref", branch).
		Get(c.repoPath(owner, repo) + "/contents/" + path)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("repohost: read file %q failed: status %d", path, resp.StatusCode())
	}
	return string(resp.Body()), nil
}

func (c *HTTPClient) ListFiles(ctx context.Context, owner, repo, branch, dir string) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out []string
	resp, err := c.rc.R().SetContext(ctx).
		SetQueryParam("ref", branch).
		SetResult(&out).
		Get(c.repoPath(owner, repo) + "/tree/" + dir)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("repohost: list files in %q failed: status %d", dir, resp.StatusCode())
	}
	return out, nil
}

func (c *HTTPClient) SearchFiles(ctx context.Context, owner, repo, branch, query string) ([]SearchMatch, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out []SearchMatch
	resp, err := c.rc.R().SetContext(ctx).
		SetQueryParams(map[string]string{"ref": branch, "q": query}).
		SetResult(&out).
		Get(c.repoPath(owner, repo) + "/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("repohost: search %q failed: status %d", query, resp.StatusCode())
	}
	return out, nil
}

func (c *HTTPClient) CommitBatch(ctx context.Context, owner, repo, branch string, edits []FileEdit) ([]FileEditResult, error) {
	results := make([]FileEditResult, 0, len(edits))
	for _, e := range edits {
		if err := c.wait(ctx); err != nil {
			return results, err
		}
		resp, err := c.rc.R().SetContext(ctx).
			SetBody(e).
			Post(c.repoPath(owner, repo) + "/branches/" + branch + "/commit")
		if err != nil {
			results = append(results, FileEditResult{Path: e.Path, Applied: false, Error: err.Error()})
			continue
		}
		if resp.IsError() {
			results = append(results, FileEditResult{Path: e.Path, Applied: false, Error: fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())})
			continue
		}
		results = append(results, FileEditResult{Path: e.Path, Applied: true})
	}
	return results, nil
}

func (c *HTTPClient) OpenPR(ctx context.Context, owner, repo, branch, title, body string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	resp, err := c.rc.R().SetContext(ctx).
		SetBody(map[string]string{"head": branch, "title": title, "body": body}).
		SetResult(&out).
		Post(c.repoPath(owner, repo) + "/pulls")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("repohost: open PR failed: status %d", resp.StatusCode())
	}
	return out.URL, nil
}
