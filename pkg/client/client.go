package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kurihiro0119/github-skill-analytics/internal/analysis"
	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
)

// Client is the API client for github-skill-analytics
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: %d %s - %s", e.StatusCode, e.Code, e.Message)
}

// AnalyzeResponse is returned by Analyze. Message is set when the repository
// had been analyzed before.
type AnalyzeResponse struct {
	ProjectID       string `json:"projectId"`
	ProjectName     string `json:"projectName"`
	RepoURL         string `json:"repoUrl"`
	AlreadyAnalyzed bool   `json:"alreadyAnalyzed"`
	Message         string `json:"message"`
}

// NewClient creates a new API client authenticating with a bearer token
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Analyze analyzes a repository unless it was analyzed before
func (c *Client) Analyze(ctx context.Context, repoFullName string) (*AnalyzeResponse, error) {
	var response struct {
		Data *AnalyzeResponse `json:"data"`
	}
	body := map[string]string{"repoFullName": repoFullName}
	if err := c.do(ctx, http.MethodPost, "/api/v1/github/analyze", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// Refresh re-analyzes a repository
func (c *Client) Refresh(ctx context.Context, repoFullName string) (*AnalyzeResponse, error) {
	var response struct {
		Data *AnalyzeResponse `json:"data"`
	}
	body := map[string]string{"repoFullName": repoFullName}
	if err := c.do(ctx, http.MethodPost, "/api/v1/github/analyze/refresh", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListRepositories lists the user's GitHub repositories
func (c *Client) ListRepositories(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepoSummary], error) {
	var response struct {
		Data *analysis.Page[*domain.RepoSummary] `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/github/repos", listParams(q), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListProjects lists the user's analyzed repositories
func (c *Client) ListProjects(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepositoryAnalytics], error) {
	var response struct {
		Data *analysis.Page[*domain.RepositoryAnalytics] `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/github/projects", listParams(q), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetProject retrieves one analyzed repository
func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.RepositoryAnalytics, error) {
	var response struct {
		Data *domain.RepositoryAnalytics `json:"data"`
	}
	path := "/api/v1/github/projects/" + url.PathEscape(projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// EvaluateSkills retrieves the skill assessment of a project
func (c *Client) EvaluateSkills(ctx context.Context, projectID string) (*analysis.EvaluateResult, error) {
	var response struct {
		Data *analysis.EvaluateResult `json:"data"`
	}
	body := map[string]string{"projectId": projectID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/github/skills", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListSkills lists the user's skill assessments
func (c *Client) ListSkills(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.SkillAssessment], error) {
	var response struct {
		Data *analysis.Page[*domain.SkillAssessment] `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/github/skills/all", listParams(q), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func listParams(q analysis.ListQuery) url.Values {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	return params
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = string(raw)
	}
	return apiErr
}
