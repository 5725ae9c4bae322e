package application

import (
	"context"
	"fmt"

	"azure-devops-mcp-server/internal/domain"
	"azure-devops-mcp-server/internal/infrastructure"
)

// UserStoryHandler implements ToolHandler for user story operations.
// It translates MCP tool calls into Azure DevOps client calls and renders
// every outcome - success or failure - as plain text content.
type UserStoryHandler struct {
	client *infrastructure.AzureDevOpsClient
}

// NewUserStoryHandler creates a new UserStoryHandler instance.
func NewUserStoryHandler(client *infrastructure.AzureDevOpsClient) *UserStoryHandler {
	return &UserStoryHandler{
		client: client,
	}
}

// Tool name constants for user story operations
const (
	ToolStoryList    = "story_list"
	ToolStoryGet     = "story_get"
	ToolStorySearch  = "story_search"
	ToolStoryByState = "story_by_state"
	ToolStoryUpdate  = "story_update"
	ToolStoryCreate  = "story_create"
)

// ToolName returns the identifier for this handler.
func (h *UserStoryHandler) ToolName() string {
	return "story"
}

// ListTools returns available tools for user story operations.
func (h *UserStoryHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolStoryList,
			Description: "List user stories in the project, most recently changed first",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of stories to return (1-200, default 50)",
					},
				},
				Required: []string{},
			},
		},
		{
			Name:        ToolStoryGet,
			Description: "Get detailed information about a user story by its ID",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"story_id": map[string]interface{}{
						"type":        "integer",
						"description": "The work item ID of the user story",
					},
				},
				Required: []string{"story_id"},
			},
		},
		{
			Name:        ToolStorySearch,
			Description: "Search user stories by a term contained in the title",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"search_term": map[string]interface{}{
						"type":        "string",
						"description": "Text to search for in story titles",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of stories to return (1-100, default 20)",
					},
				},
				Required: []string{"search_term"},
			},
		},
		{
			Name:        ToolStoryByState,
			Description: "List user stories in a specific state (e.g., New, Active, Closed)",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"state": map[string]interface{}{
						"type":        "string",
						"description": "The state to filter by (exact match)",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of stories to return (1-200, default 50)",
					},
				},
				Required: []string{"state"},
			},
		},
		{
			Name:        ToolStoryUpdate,
			Description: "Update fields of an existing user story",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"story_id": map[string]interface{}{
						"type":        "integer",
						"description": "The work item ID of the user story",
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
					"priority": map[string]interface{}{
						"type":        "integer",
						"description": "New priority (optional)",
					},
					"story_points": map[string]interface{}{
						"type":        "integer",
						"description": "New story points estimate (optional)",
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
				Required: []string{"story_id"},
			},
		},
		{
			Name:        ToolStoryCreate,
			Description: "Create a new user story (always created in the New state)",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "The story title",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "The story description (optional)",
					},
					"priority": map[string]interface{}{
						"type":        "integer",
						"description": "Priority (optional)",
					},
					"story_points": map[string]interface{}{
						"type":        "integer",
						"description": "Story points estimate (optional)",
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

// Handle processes an MCP tool call request for user story operations.
func (h *UserStoryHandler) Handle(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	// Validate that we have arguments
	if req.Arguments == nil {
		req.Arguments = make(map[string]interface{})
	}

	// Route to the appropriate handler based on tool name
	switch req.Name {
	case ToolStoryList:
		return h.handleList(ctx, req.Arguments), nil
	case ToolStoryGet:
		return h.handleGet(ctx, req.Arguments), nil
	case ToolStorySearch:
		return h.handleSearch(ctx, req.Arguments), nil
	case ToolStoryByState:
		return h.handleByState(ctx, req.Arguments), nil
	case ToolStoryUpdate:
		return h.handleUpdate(ctx, req.Arguments), nil
	case ToolStoryCreate:
		return h.handleCreate(ctx, req.Arguments), nil
	default:
		return nil, &domain.Error{
			Code:    domain.MethodNotFound,
			Message: fmt.Sprintf("unknown user story tool: %s", req.Name),
		}
	}
}

// handleList handles the story_list tool call.
func (h *UserStoryHandler) handleList(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	limit, err := getLimitParam(args, defaultListLimit, maxListLimit)
	if err != nil {
		return errorResponse("retrieving user stories", err)
	}

	raws, err := h.client.QueryWorkItems(ctx, infrastructure.QueryOptions{
		WorkItemType: domain.TypeUserStory,
		Limit:        limit,
	})
	if err != nil {
		return errorResponse("retrieving user stories", err)
	}

	stories, _ := domain.ParseWorkItems(raws)
	return textResponse(fmt.Sprintf("Retrieved %d user stories:\n%s", len(stories), renderJSON(stories)))
}

// handleGet handles the story_get tool call.
func (h *UserStoryHandler) handleGet(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	storyID, err := getIntParam(args, "story_id", true)
	if err != nil {
		return errorResponse("retrieving story details", err)
	}

	raw, err := h.client.GetWorkItemByID(ctx, storyID)
	if err != nil {
		return errorResponse("retrieving story details", err)
	}
	if raw == nil {
		return textResponse(fmt.Sprintf("Work item with ID %d not found", storyID))
	}

	story, err := domain.ParseWorkItem(raw)
	if err != nil {
		return errorResponse("retrieving story details", err)
	}

	return textResponse(fmt.Sprintf("User story details:\n%s", renderJSON(story)))
}

// handleSearch handles the story_search tool call.
func (h *UserStoryHandler) handleSearch(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	searchTerm, err := getStringParam(args, "search_term", true)
	if err != nil {
		return errorResponse("searching stories", err)
	}

	limit, err := getLimitParam(args, defaultSearchLimit, maxSearchLimit)
	if err != nil {
		return errorResponse("searching stories", err)
	}

	raws, err := h.client.QueryWorkItems(ctx, infrastructure.QueryOptions{
		WorkItemType:  domain.TypeUserStory,
		TitleContains: searchTerm,
		Limit:         limit,
	})
	if err != nil {
		return errorResponse("searching stories", err)
	}

	stories, _ := domain.ParseWorkItems(raws)
	return textResponse(fmt.Sprintf("Found %d stories matching '%s':\n%s", len(stories), searchTerm, renderJSON(stories)))
}

// handleByState handles the story_by_state tool call.
func (h *UserStoryHandler) handleByState(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	state, err := getStringParam(args, "state", true)
	if err != nil {
		return errorResponse("retrieving stories by state", err)
	}

	limit, err := getLimitParam(args, defaultListLimit, maxListLimit)
	if err != nil {
		return errorResponse("retrieving stories by state", err)
	}

	raws, err := h.client.QueryWorkItems(ctx, infrastructure.QueryOptions{
		WorkItemType: domain.TypeUserStory,
		State:        state,
		Limit:        limit,
	})
	if err != nil {
		return errorResponse("retrieving stories by state", err)
	}

	stories, _ := domain.ParseWorkItems(raws)
	return textResponse(fmt.Sprintf("Found %d stories in state '%s':\n%s", len(stories), state, renderJSON(stories)))
}

// handleUpdate handles the story_update tool call.
// The story is fetched first: a missing item or a work item of another
// type produces a descriptive message without issuing the update.
func (h *UserStoryHandler) handleUpdate(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	storyID, err := getIntParam(args, "story_id", true)
	if err != nil {
		return errorResponse("updating user story", err)
	}

	existing, err := h.client.GetWorkItemByID(ctx, storyID)
	if err != nil {
		return errorResponse(fmt.Sprintf("updating user story %d", storyID), err)
	}
	if existing == nil {
		return textResponse(fmt.Sprintf("User story with ID %d not found", storyID))
	}
	if typeTag := existing.WorkItemType(); typeTag != domain.TypeUserStory {
		return textResponse(fmt.Sprintf("Work item %d is not a user story (it's a %s)", storyID, typeTag))
	}

	patch, errResp := buildStoryPatch(args)
	if errResp != nil {
		return errResp
	}
	if patch.Len() == 0 {
		return textResponse("No fields provided for update. Please specify at least one field to update.")
	}

	updated, err := h.client.UpdateWorkItem(ctx, storyID, patch)
	if err != nil {
		return errorResponse(fmt.Sprintf("updating user story %d", storyID), err)
	}

	story, err := domain.ParseWorkItem(updated)
	if err != nil {
		return errorResponse(fmt.Sprintf("updating user story %d", storyID), err)
	}

	return textResponse(fmt.Sprintf("Successfully updated user story %d:\n%s", storyID, renderJSON(story)))
}

// buildStoryPatch collects the optional update fields into a patch
// document of replace operations. Only parameters actually present in the
// arguments become patch entries.
func buildStoryPatch(args map[string]interface{}) (*domain.PatchDocument, *domain.ToolResponse) {
	patch := domain.NewPatchDocument()

	stringFields := []struct {
		param string
		field domain.Field
	}{
		{"title", domain.FieldTitle},
		{"state", domain.FieldState},
		{"assigned_to", domain.FieldAssignedTo},
		{"description", domain.FieldDescription},
		{"tags", domain.FieldTags},
		{"area_path", domain.FieldAreaPath},
		{"iteration_path", domain.FieldIterationPath},
	}
	for _, sf := range stringFields {
		value, err := getOptionalStringParam(args, sf.param)
		if err != nil {
			return nil, errorResponse("updating user story", err)
		}
		if value != nil {
			patch.Replace(sf.field, *value)
		}
	}

	intFields := []struct {
		param string
		field domain.Field
	}{
		{"priority", domain.FieldPriority},
		{"story_points", domain.FieldStoryPoints},
	}
	for _, nf := range intFields {
		value, err := getOptionalIntParam(args, nf.param)
		if err != nil {
			return nil, errorResponse("updating user story", err)
		}
		if value != nil {
			patch.Replace(nf.field, *value)
		}
	}

	return patch, nil
}

// handleCreate handles the story_create tool call.
// The default state is appended after the caller's fields, so a
// caller-provided state is always overridden by "New".
func (h *UserStoryHandler) handleCreate(ctx context.Context, args map[string]interface{}) *domain.ToolResponse {
	title, err := getStringParam(args, "title", true)
	if err != nil {
		return errorResponse("creating user story", err)
	}

	patch := domain.NewPatchDocument()
	patch.Add(domain.FieldTitle, title)

	stringFields := []struct {
		param string
		field domain.Field
	}{
		{"description", domain.FieldDescription},
		{"assigned_to", domain.FieldAssignedTo},
		{"area_path", domain.FieldAreaPath},
		{"iteration_path", domain.FieldIterationPath},
		{"tags", domain.FieldTags},
	}
	for _, sf := range stringFields {
		value, err := getOptionalStringParam(args, sf.param)
		if err != nil {
			return errorResponse("creating user story", err)
		}
		if value != nil {
			patch.Add(sf.field, *value)
		}
	}

	intFields := []struct {
		param string
		field domain.Field
	}{
		{"priority", domain.FieldPriority},
		{"story_points", domain.FieldStoryPoints},
	}
	for _, nf := range intFields {
		value, err := getOptionalIntParam(args, nf.param)
		if err != nil {
			return errorResponse("creating user story", err)
		}
		if value != nil {
			patch.Add(nf.field, *value)
		}
	}

	// Forced default state, appended last so it wins
	patch.Add(domain.FieldState, domain.DefaultStoryState)

	created, err := h.client.CreateWorkItem(ctx, domain.TypeUserStory, patch)
	if err != nil {
		return errorResponse("creating user story", err)
	}

	story, err := domain.ParseWorkItem(created)
	if err != nil {
		return errorResponse("creating user story", err)
	}

	return textResponse(fmt.Sprintf("Successfully created user story %d:\n%s", story.ID, renderJSON(story)))
}
