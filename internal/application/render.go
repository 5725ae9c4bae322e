package application

import (
	"encoding/json"
	"fmt"

	"azure-devops-mcp-server/internal/domain"
)

// textResponse wraps plain text in an MCP tool response.
// Every tool result - success or failure - goes through here, so the tool
// call boundary never surfaces an error object.
func textResponse(text string) *domain.ToolResponse {
	return &domain.ToolResponse{
		Content: []domain.ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// errorResponse renders an operational failure as tool call text.
// The doing argument describes the attempted operation in gerund form
// (e.g., "retrieving user stories").
func errorResponse(doing string, err error) *domain.ToolResponse {
	return textResponse(fmt.Sprintf("Error %s: %v", doing, err))
}

// renderJSON pretty-prints a value as indented JSON for human-readable
// tool output.
func renderJSON(value interface{}) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
