package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"azure-devops-mcp-server/internal/domain"
)

// Azure DevOps REST API versions.
const (
	apiVersion     = "7.1-preview.3"
	wiqlAPIVersion = "7.1-preview.2"
)

// OrganizationBaseURL returns the REST base URL for an organization.
func OrganizationBaseURL(organization string) string {
	return "https://dev.azure.com/" + url.PathEscape(organization)
}

// AzureDevOpsClient handles Azure DevOps work item tracking API
// interactions for a single project. It issues authenticated requests and
// classifies every failure into exactly one domain.ClientError kind.
type AzureDevOpsClient struct {
	baseURL    string
	project    string
	httpClient *http.Client
}

// NewAzureDevOpsClient creates a new Azure DevOps API client.
// The baseURL is the organization root (e.g., "https://dev.azure.com/myorg").
// The httpClient should come from domain.NewAuthenticatedClient so that
// authentication, TLS policy and retries are already in place.
func NewAzureDevOpsClient(baseURL, project string, httpClient *http.Client) *AzureDevOpsClient {
	return &AzureDevOpsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		project:    project,
		httpClient: httpClient,
	}
}

// BaseURL returns the configured organization base URL.
func (c *AzureDevOpsClient) BaseURL() string {
	return c.baseURL
}

// Project returns the configured project name.
func (c *AzureDevOpsClient) Project() string {
	return c.project
}

// QueryOptions describes a work item query.
// WorkItemType is mandatory; State and TitleContains narrow the result;
// Limit caps the number of items fetched.
type QueryOptions struct {
	WorkItemType  string
	State         string
	TitleContains string
	Limit         int
}

// QueryWorkItems runs a WIQL query and fetches the matching work items.
// Two round trips: the WIQL POST yields matching ids in recency order, then
// a batch GET retrieves field data for at most opts.Limit of them. A query
// with no matches returns an empty slice and no error - the second round
// trip is skipped entirely.
func (c *AzureDevOpsClient) QueryWorkItems(ctx context.Context, opts QueryOptions) ([]domain.RawWorkItem, error) {
	// Phase 1: WIQL query for matching ids
	wiqlBody, err := json.Marshal(domain.WiqlRequest{Query: c.buildWIQL(opts)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WIQL query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s",
		c.baseURL, url.PathEscape(c.project), wiqlAPIVersion)

	status, body, err := c.send(ctx, http.MethodPost, endpoint, wiqlBody, "application/json")
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewHTTPStatusError(status, body)
	}

	var wiqlResp domain.WiqlResponse
	if err := json.Unmarshal(body, &wiqlResp); err != nil {
		return nil, fmt.Errorf("failed to decode WIQL response: %w", err)
	}

	if len(wiqlResp.WorkItems) == 0 {
		return []domain.RawWorkItem{}, nil
	}

	// Truncate to the requested limit before fetching fields
	refs := wiqlResp.WorkItems
	if opts.Limit > 0 && len(refs) > opts.Limit {
		refs = refs[:opts.Limit]
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = strconv.Itoa(ref.ID)
	}

	// Phase 2: batch fetch with expanded fields
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("api-version", apiVersion)
	params.Set("$expand", "fields")

	endpoint = fmt.Sprintf("%s/%s/_apis/wit/workitems?%s",
		c.baseURL, url.PathEscape(c.project), params.Encode())

	status, body, err = c.send(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewHTTPStatusError(status, body)
	}

	var batchResp domain.WorkItemBatchResponse
	if err := json.Unmarshal(body, &batchResp); err != nil {
		return nil, fmt.Errorf("failed to decode work item batch response: %w", err)
	}

	return batchResp.Value, nil
}

// GetWorkItemByID retrieves a single work item with all fields expanded.
// A missing item is an expected outcome of a lookup, so a 404 returns
// (nil, nil) rather than an error.
func (c *AzureDevOpsClient) GetWorkItemByID(ctx context.Context, id int) (*domain.RawWorkItem, error) {
	params := url.Values{}
	params.Set("api-version", apiVersion)
	params.Set("$expand", "fields")

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?%s",
		c.baseURL, url.PathEscape(c.project), id, params.Encode())

	status, body, err := c.send(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewHTTPStatusError(status, body)
	}

	var raw domain.RawWorkItem
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode work item response: %w", err)
	}

	return &raw, nil
}

// CreateWorkItem creates a work item of the given type.
// The patch document carries the caller's fields; the title and any forced
// defaults are expected to already be part of it. The type tag travels
// twice, as the REST contract demands: in the URL and as the document's
// leading add operation. Returns the created item as the server reports it.
func (c *AzureDevOpsClient) CreateWorkItem(ctx context.Context, workItemType string, patch *domain.PatchDocument) (*domain.RawWorkItem, error) {
	if err := patch.Err(); err != nil {
		return nil, err
	}

	ops := append([]domain.PatchOperation{{
		Op:    "add",
		Path:  "/fields/" + domain.FieldWorkItemType.ReferenceName(),
		Value: workItemType,
	}}, patch.Operations()...)

	body, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch document: %w", err)
	}

	// The work item type is part of the path, prefixed with '$'
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/$%s?api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(workItemType), apiVersion)

	status, respBody, err := c.send(ctx, http.MethodPost, endpoint, body, "application/json-patch+json")
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewHTTPStatusError(status, respBody)
	}

	var raw domain.RawWorkItem
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode created work item: %w", err)
	}

	return &raw, nil
}

// UpdateWorkItem applies a patch document to an existing work item.
// Unlike GetWorkItemByID, a 404 here is a loud failure: updating something
// that does not exist is always an error.
func (c *AzureDevOpsClient) UpdateWorkItem(ctx context.Context, id int, patch *domain.PatchDocument) (*domain.RawWorkItem, error) {
	if err := patch.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(patch.Operations())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch document: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?api-version=%s",
		c.baseURL, url.PathEscape(c.project), id, apiVersion)

	status, respBody, err := c.send(ctx, http.MethodPatch, endpoint, body, "application/json-patch+json")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, &domain.NotFoundError{ID: id}
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewHTTPStatusError(status, respBody)
	}

	var raw domain.RawWorkItem
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode updated work item: %w", err)
	}

	return &raw, nil
}

// buildWIQL constructs the WIQL query text for the given options.
// The select list is the fixed field set; filters narrow by project, type
// and optionally state and title; results come back most recently changed
// first.
func (c *AzureDevOpsClient) buildWIQL(opts QueryOptions) string {
	var sb strings.Builder

	sb.WriteString("SELECT [System.Id]")
	for _, field := range domain.QueryFields() {
		sb.WriteString(", [")
		sb.WriteString(field.ReferenceName())
		sb.WriteString("]")
	}

	sb.WriteString(" FROM workitems WHERE [System.TeamProject] = '")
	sb.WriteString(escapeWIQL(c.project))
	sb.WriteString("' AND [System.WorkItemType] = '")
	sb.WriteString(escapeWIQL(opts.WorkItemType))
	sb.WriteString("'")

	if opts.State != "" {
		sb.WriteString(" AND [System.State] = '")
		sb.WriteString(escapeWIQL(opts.State))
		sb.WriteString("'")
	}
	if opts.TitleContains != "" {
		sb.WriteString(" AND [System.Title] CONTAINS '")
		sb.WriteString(escapeWIQL(opts.TitleContains))
		sb.WriteString("'")
	}

	sb.WriteString(" ORDER BY [System.ChangedDate] DESC")

	return sb.String()
}

// escapeWIQL doubles single quotes so caller-provided values cannot break
// out of WIQL string literals.
func escapeWIQL(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// send executes a single HTTP request and reads the full response body.
// Transport-level failures come back classified; status handling is left
// to the caller because the meaning of a 404 depends on the operation.
func (c *AzureDevOpsClient) send(ctx context.Context, method, endpoint string, body []byte, contentType string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, domain.ClassifyRequestError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domain.ClassifyRequestError(err)
	}

	return resp.StatusCode, respBody, nil
}
