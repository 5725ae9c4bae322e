package application

import (
	"context"
	"fmt"

	"azure-devops-mcp-server/internal/domain"
	"azure-devops-mcp-server/internal/infrastructure"
)

// TestCaseHandler implements ToolHandler for test case operations.
// Mirrors the user story handler, with test-specific fields (test steps,
// priority, automation status) and the "Design" default creation state.
type TestCaseHandler struct {
	client *infrastructure.AzureDevOpsClient
}

// NewTestCaseHandler creates a new TestCaseHandler instance.
func NewTestCaseHandler(client *infrastructure.AzureDevOpsClient) *TestCaseHandler {
	return &TestCaseHandler{
		client: client,
	}
}

// Tool name constants for test case operations
const (
	ToolTestCaseList    = "testcase_list"
	ToolTestCaseGet     = "testcase_get"
	ToolTestCaseSearch  = "testcase_search"
	ToolTestCaseByState = "testcase_by_state"
	ToolTestCaseUpdate  = "testcase_update"
	ToolTestCaseCreate  = "testcase_create"
)

// ToolName returns the identifier for this handler.
func (h *TestCaseHandler) ToolName() string {
	return "testcase"
}

// ListTools returns available tools for test case operations.
func (h *TestCaseHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolTestCaseList,
			Description: "List test cases in the project, most recently changed first",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of test cases to return (1-200, default 50)",
					},
				},
				Required: []string{},
			},
		},
		{
			Name:        ToolTestCaseGet,
			Description: "Get detailed information about a test case by its ID",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"test_case_id": map[string]interface{}{
						"type":        "integer",
						"description": "The work item ID of the test case",
					},
				},
				Required: []string{"test_case_id"},
			},
		},
		{
			Name:        ToolTestCaseSearch,
			Description: "Search test cases by a term contained in the title",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"search_term": map[string]interface{}{
						"type":        "string",
						"description": "Text to search for in test case titles",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of test cases to return (1-100, default 20)",
					},
				},
				Required: []string{"search_term"},
			},
		},
		{
			Name:        ToolTestCaseByState,
			Description: "List test cases in a specific state (e.g., Design, Ready, Closed)",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"state": map[string]interface{}{
						"type":        "string",
						"description": "The state to filter by (exact match)",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of test cases to return (1-200, default 50)",
					},
				},
				Required: []string{"state"},
			},
		},
		{
			Name:        ToolTestCaseUpdate,
			Description: "Update fields of an existing test case",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"test_case_id": map[string]interface{}{
						"type":        "integer",
						"description": "The work item ID of the test case",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "New title (optional)",
					},
					"state": map[string]interface{}{
						"type":        "string",
						"description": "New state (optional)",
					},
					"assigned_to": map[string]interface{}{
						"type":        "string",
						"description": "New assignee (optional)",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "New description (optional)",
					},
					"test_steps": map[string]interface{}{
						"type":        "string",
						"description": "New test steps (optional)",
					},
					"priority": map[string]interface{}{
						"type":        "integer",
						"description": "New priority (optional)",
					},
					"automation_status": map[string]interface{}{
						"type":        "string",
						"description": "New automation status (optional)",
					},
					"tags": map[string]interface{}{
						"type":        "string",
						"description": "New semicolon-separated tags (optional)",
					},
					"area_path": map[string]interface{}{
						"type":        "string",
						"description": "New area path (optional)",
					},
					"iteration_path": map[string]interface{}{
						"type":        "string",
						"description": "New iteration path (optional)",
					},
				},
				Required: []string{"test_case_id"},
			},
		},
		{
			Name:        ToolTestCaseCreate,
			Description: "Create a new test case (always created in the Design state)",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "The test case title",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "The test case description (optional)",
					},
					"test_steps": map[string]interface{}{
						"type":        "string",
						"description": "Test steps (optional)",
					},
					"priority": map[string]interface{}{
						"type":        "integer",
						"description": "Priority (optional)",
					},
					"assigned_to": map[string]interface{}{
						"type":        "string",
						"description": "Assignee (optional)",
					},
					"area_path": map[string]interface{}{
						"type":        "string",
						"description": "Area path (optional)",
					},
					"iteration_path": map[string]interface{}{
						"type":        "string",
						"description": "Iteration path (optional)",
					},
					"automation_status": map[string]interface{}{
						"type":        "string",
						"description": "Automation status (optional)",
					},
					"tags": map[string]interface{}{
						"type":        "string",
						"description": "Semicolon-separated tags (optional)",
					},
				},
				Required: []string{"title"},
			},
		},
	}
}

// Handle processes an MCP tool call request for test case operations.
func (h *TestCaseHandler) Handle(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	// Validate that we have arguments
	if req.Arguments == nil {
		req.Arguments = make(map[string]interface{})
	}

	// Route to the appropriate handler based on tool name
	switch req.Name {
	case ToolTestCaseList:
		return h.handleList(ctx, req.Arguments), nil
	case ToolTestCaseGet:
		return h.handleGet(ctx, req.Arguments), nil
	case ToolTestCaseSearch:
		return h.handleSearch(ctx, req.Arguments), nil
	case ToolTestCaseByState:
		return h.handleByState(ctx, req.Arguments), nil
	case ToolTestCaseUpdate:
		return h.handleUpdate(ctx, req.Arguments), nil
	case ToolTestCaseCreate:
		return h.handleCreate(ctx, req.Arguments), nil
	default:
		return nil, &domain.Error{
			Code:    domain.MethodNotFound,
			Message: fmt.Sprintf("unknown test case tool: %s", req.Name),
		}
	}
}

// handleList handles the testcase_list tool call.
func (h *TestCaseHandler) handleList(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	limit, err := getLimitParam(args, defaultListLimit, maxListLimit)
	if err != nil {
		return errorResponse("retrieving test cases", err)
	}

	raws, err := h.client.QueryWorkItems(ctx, infrastructure.QueryOptions{
		WorkItemType: domain.TypeTestCase,
		Limit:        limit,
	})
	if err != nil {
		return errorResponse("retrieving test cases", err)
	}

	testCases, _ := domain.ParseTestCases(raws)
	return textResponse(fmt.Sprintf("Retrieved %d test cases:\n%s", len(testCases), renderJSON(testCases)))
}

// handleGet handles the testcase_get tool call.
// Unlike the story lookup, the type tag is verified: asking for a test
// case by the ID of some other work item is reported as a mismatch.
func (h *TestCaseHandler) handleGet(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	testCaseID, err := getIntParam(args, "test_case_id", true)
	if err != nil {
		return errorResponse("retrieving test case details", err)
	}

	raw, err := h.client.GetWorkItemByID(ctx, testCaseID)
	if err != nil {
		return errorResponse("retrieving test case details", err)
	}
	if raw == nil {
		return textResponse(fmt.Sprintf("Test case with ID %d not found", testCaseID))
	}
	if typeTag := raw.WorkItemType(); typeTag != domain.TypeTestCase {
		return textResponse(fmt.Sprintf("Work item %d is not a test case (it's a %s)", testCaseID, typeTag))
	}

	testCase, err := domain.ParseTestCase(raw)
	if err != nil {
		return errorResponse("retrieving test case details", err)
	}

	return textResponse(fmt.Sprintf("Test case details:\n%s", renderJSON(testCase)))
}

// handleSearch handles the testcase_search tool call.
func (h *TestCaseHandler) handleSearch(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	searchTerm, err := getStringParam(args, "search_term", true)
	if err != nil {
		return errorResponse("searching test cases", err)
	}

	limit, err := getLimitParam(args, defaultSearchLimit, maxSearchLimit)
	if err != nil {
		return errorResponse("searching test cases", err)
	}

	raws, err := h.client.QueryWorkItems(ctx, infrastructure.QueryOptions{
		WorkItemType:  domain.TypeTestCase,
		TitleContains: searchTerm,
		Limit:         limit,
	})
	if err != nil {
		return errorResponse("searching test cases", err)
	}

	testCases, _ := domain.ParseTestCases(raws)
	return textResponse(fmt.Sprintf("Found %d test cases matching '%s':\n%s", len(testCases), searchTerm, renderJSON(testCases)))
}

// handleByState handles the testcase_by_state tool call.
func (h *TestCaseHandler) handleByState(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	state, err := getStringParam(args, "state", true)
	if err != nil {
		return errorResponse("retrieving test cases by state", err)
	}

	limit, err := getLimitParam(args, defaultListLimit, maxListLimit)
	if err != nil {
		return errorResponse("retrieving test cases by state", err)
	}

	raws, err := h.client.QueryWorkItems(ctx, infrastructure.QueryOptions{
		WorkItemType: domain.TypeTestCase,
		State:        state,
		Limit:        limit,
	})
	if err != nil {
		return errorResponse("retrieving test cases by state", err)
	}

	testCases, _ := domain.ParseTestCases(raws)
	return textResponse(fmt.Sprintf("Found %d test cases in state '%s':\n%s", len(testCases), state, renderJSON(testCases)))
}

// handleUpdate handles the testcase_update tool call.
// The test case is fetched first: a missing item or a work item of another
// type produces a descriptive message without issuing the update.
func (h *TestCaseHandler) handleUpdate(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	testCaseID, err := getIntParam(args, "test_case_id", true)
	if err != nil {
		return errorResponse("updating test case", err)
	}

	existing, err := h.client.GetWorkItemByID(ctx, testCaseID)
	if err != nil {
		return errorResponse(fmt.Sprintf("updating test case %d", testCaseID), err)
	}
	if existing == nil {
		return textResponse(fmt.Sprintf("Test case with ID %d not found", testCaseID))
	}
	if typeTag := existing.WorkItemType(); typeTag != domain.TypeTestCase {
		return textResponse(fmt.Sprintf("Work item %d is not a test case (it's a %s)", testCaseID, typeTag))
	}

	patch, errResp := buildTestCasePatch(args)
	if errResp != nil {
		return errResp
	}
	if patch.Len() == 0 {
		return textResponse("No fields provided for update. Please specify at least one field to update.")
	}

	updated, err := h.client.UpdateWorkItem(ctx, testCaseID, patch)
	if err != nil {
		return errorResponse(fmt.Sprintf("updating test case %d", testCaseID), err)
	}

	testCase, err := domain.ParseTestCase(updated)
	if err != nil {
		return errorResponse(fmt.Sprintf("updating test case %d", testCaseID), err)
	}

	return textResponse(fmt.Sprintf("Successfully updated test case %d:\n%s", testCaseID, renderJSON(testCase)))
}

// buildTestCasePatch collects the optional update fields into a patch
// document of replace operations. Only parameters actually present in the
// arguments become patch entries.
func buildTestCasePatch(args map[string]interface{}) (*domain.PatchDocument, *domain.ToolResponse) {
	patch := domain.NewPatchDocument()

	stringFields := []struct {
		param string
		field domain.Field
	}{
		{"title", domain.FieldTitle},
		{"state", domain.FieldState},
		{"assigned_to", domain.FieldAssignedTo},
		{"description", domain.FieldDescription},
		{"test_steps", domain.FieldTestSteps},
		{"automation_status", domain.FieldAutomationStatus},
		{"tags", domain.FieldTags},
		{"area_path", domain.FieldAreaPath},
		{"iteration_path", domain.FieldIterationPath},
	}
	for _, sf := range stringFields {
		value, err := getOptionalStringParam(args, sf.param)
		if err != nil {
			return nil, errorResponse("updating test case", err)
		}
		if value != nil {
			patch.Replace(sf.field, *value)
		}
	}

	priority, err := getOptionalIntParam(args, "priority")
	if err != nil {
		return nil, errorResponse("updating test case", err)
	}
	if priority != nil {
		patch.Replace(domain.FieldPriority, *priority)
	}

	return patch, nil
}

// handleCreate handles the testcase_create tool call.
// The default state is appended after the caller's fields, so a
// caller-provided state is always overridden by "Design".
func (h *TestCaseHandler) handleCreate(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	title, err := getStringParam(args, "title", true)
	if err != nil {
		return errorResponse("creating test case", err)
	}

	patch := domain.NewPatchDocument()
	patch.Add(domain.FieldTitle, title)

	stringFields := []struct {
		param string
		field domain.Field
	}{
		{"description", domain.FieldDescription},
		{"test_steps", domain.FieldTestSteps},
		{"assigned_to", domain.FieldAssignedTo},
		{"area_path", domain.FieldAreaPath},
		{"iteration_path", domain.FieldIterationPath},
		{"automation_status", domain.FieldAutomationStatus},
		{"tags", domain.FieldTags},
	}
	for _, sf := range stringFields {
		value, err := getOptionalStringParam(args, sf.param)
		if err != nil {
			return errorResponse("creating test case", err)
		}
		if value != nil {
			patch.Add(sf.field, *value)
		}
	}

	priority, err := getOptionalIntParam(args, "priority")
	if err != nil {
		return errorResponse("creating test case", err)
	}
	if priority != nil {
		patch.Add(domain.FieldPriority, *priority)
	}

	// Forced default state, appended last so it wins
	patch.Add(domain.FieldState, domain.DefaultTestCaseState)

	created, err := h.client.CreateWorkItem(ctx, domain.TypeTestCase, patch)
	if err != nil {
		return errorResponse("creating test case", err)
	}

	testCase, err := domain.ParseTestCase(created)
	if err != nil {
		return errorResponse("creating test case", err)
	}

	return textResponse(fmt.Sprintf("Successfully created test case %d:\n%s", testCase.ID, renderJSON(testCase)))
}
