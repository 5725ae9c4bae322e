package application

import (
	"strings"
	"testing"

	"azure-devops-mcp-server/internal/domain"
)

func TestTestCaseListEndToEnd(t *testing.T) {
	backend := newWorkItemBackend()
	defer backend.close()

	backend.wiqlIDs = []int{201}
	backend.batchItems = []domain.RawWorkItem{
		{ID: 201, Fields: map[string]interface{}{
			"System.Title":                        "Checkout regression",
			"System.State":                        "Design",
			"Microsoft.VSTS.Common.Priority":      2.0,
			"Microsoft.VSTS.TCM.AutomationStatus": "Not Automated",
		}},
	}

	handler := NewTestCaseHandler(backend.devOpsClient())
	text := callTool(t, handler, ToolTestCaseList, map[string]interface{}{})

	if !strings.HasPrefix(text, "Retrieved 1 test cases:\n") {
		t.Errorf("unexpected prefix: %s", text)
	}
	for _, want := range []string{`"Checkout regression"`, `"Not Automated"`, `"priority": 2`} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %s:\n%s", want, text)
		}
	}
}

func TestTestCaseGetVerifiesTypeTag(t *testing.T) {
	backend := newWorkItemBackend()
	defer backend.close()

	backend.singleItems[301] = domain.RawWorkItem{
		ID: 301,
		Fields: map[string]interface{}{
			"System.WorkItemType": "Test Case",
			"System.Title":        "A real test case",
		},
	}
	backend.singleItems[302] = domain.RawWorkItem{
		ID: 302,
		Fields: map[string]interface{}{
			"System.WorkItemType": "User Story",
			"System.Title":        "Not a test case",
		},
	}

	handler := NewTestCaseHandler(backend.devOpsClient())

	text := callTool(t, handler, ToolTestCaseGet, map[string]interface{}{"test_case_id": 301.0})
	if !strings.HasPrefix(text, "Test case details:") || !strings.Contains(text, `"A real test case"`) {
		t.Errorf("unexpected details: %s", text)
	}

	// The test case lookup rejects other work item kinds
	text = callTool(t, handler, ToolTestCaseGet, map[string]interface{}{"test_case_id": 302.0})
	if text != "Work item 302 is not a test case (it's a User Story)" {
		t.Errorf("unexpected text: %s", text)
	}

	text = callTool(t, handler, ToolTestCaseGet, map[string]interface{}{"test_case_id": 999.0})
	if text != "Test case with ID 999 not found" {
		t.Errorf("unexpected text: %s", text)
	}
}

func TestTestCaseSearchAndByState(t *testing.T) {
	backend := newWorkItemBackend()
	defer backend.close()

	backend.wiqlIDs = nil

	handler := NewTestCaseHandler(backend.devOpsClient())

	text := callTool(t, handler, ToolTestCaseSearch, map[string]interface{}{"search_term": "smoke"})
	if !strings.HasPrefix(text, "Found 0 test cases matching 'smoke':") {
		t.Errorf("unexpected prefix: %s", text)
	}

	text = callTool(t, handler, ToolTestCaseByState, map[string]interface{}{"state": "Ready"})
	if !strings.HasPrefix(text, "Found 0 test cases in state 'Ready':") {
		t.Errorf("unexpected prefix: %s", text)
	}
}

func TestTestCaseUpdatePreChecks(t *testing.T) {
	backend := newWorkItemBackend()
	defer backend.close()

	backend.singleItems[310] = domain.RawWorkItem{
		ID:     310,
		Fields: map[string]interface{}{"System.WorkItemType": "Bug"},
	}

	handler := NewTestCaseHandler(backend.devOpsClient())

	text := callTool(t, handler, ToolTestCaseUpdate, map[string]interface{}{
		"test_case_id": 310.0,
		"title":        "irrelevant",
	})
	if text != "Work item 310 is not a test case (it's a Bug)" {
		t.Errorf("unexpected text: %s", text)
	}

	text = callTool(t, handler, ToolTestCaseUpdate, map[string]interface{}{"test_case_id": 888.0})
	if text != "Test case with ID 888 not found" {
		t.Errorf("unexpected text: %s", text)
	}

	if backend.patchCount != 0 {
		t.Errorf("pre-checks must not issue updates, saw %d", backend.patchCount)
	}
}

func TestTestCaseUpdateTestFields(t *testing.T) {
	backend := newWorkItemBackend()
	defer backend.close()

	backend.singleItems[311] = domain.RawWorkItem{
		ID:     311,
		Fields: map[string]interface{}{"System.WorkItemType": "Test Case"},
	}

	handler := NewTestCaseHandler(backend.devOpsClient())
	text := callTool(t, handler, ToolTestCaseUpdate, map[string]interface{}{
		"test_case_id":      311.0,
		"test_steps":        "<steps/>",
		"automation_status": "Automated",
	})

	if !strings.HasPrefix(text, "Successfully updated test case 311:") {
		t.Errorf("unexpected prefix: %s", text)
	}

	paths := make(map[string]bool)
	for _, op := range backend.lastPatch {
		paths[op.Path] = true
	}
	if !paths["/fields/Microsoft.VSTS.TCM.Steps"] || !paths["/fields/Microsoft.VSTS.TCM.AutomationStatus"] {
		t.Errorf("test-specific fields missing from patch: %+v", backend.lastPatch)
	}
}

func TestTestCaseCreateForcesDesignState(t *testing.T) {
	backend := newWorkItemBackend()
	defer backend.close()

	handler := NewTestCaseHandler(backend.devOpsClient())
	text := callTool(t, handler, ToolTestCaseCreate, map[string]interface{}{
		"title":      "New regression check",
		"test_steps": "<steps/>",
	})

	if !strings.HasPrefix(text, "Successfully created test case 500:") {
		t.Errorf("unexpected prefix: %s", text)
	}

	ops := backend.lastCreate
	if len(ops) < 3 {
		t.Fatalf("unexpected operations: %+v", ops)
	}
	if ops[0].Path != "/fields/System.WorkItemType" || ops[0].Value != "Test Case" {
		t.Errorf("first op = %+v, want work item type", ops[0])
	}
	if ops[1].Path != "/fields/System.Title" {
		t.Errorf("second op = %+v, want title", ops[1])
	}
	last := ops[len(ops)-1]
	if last.Path != "/fields/System.State" || last.Value != "Design" {
		t.Errorf("last op = %+v, want forced Design state", last)
	}
}

func TestTestCaseHandlerListTools(t *testing.T) {
	handler := NewTestCaseHandler(nil)
	tools := handler.ListTools()

	if len(tools) != 6 {
		t.Fatalf("got %d tools, want 6", len(tools))
	}
	for _, tool := range tools {
		if !strings.HasPrefix(tool.Name, "testcase_") {
			t.Errorf("tool %q does not carry the testcase_ prefix", tool.Name)
		}
	}
}
