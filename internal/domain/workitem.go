package domain

// Work item type tags as they appear in System.WorkItemType.
const (
	TypeUserStory = "User Story"
	TypeTestCase  = "Test Case"
)

// Default states applied when creating work items.
const (
	DefaultStoryState    = "New"
	DefaultTestCaseState = "Design"
)

// WorkItem is the normalized read model for a user story.
// Pointer fields distinguish an absent value from an empty one - a story
// with no description carries nil, never "". Date fields keep the ISO-8601
// strings exactly as received.
type WorkItem struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	WorkItemType  string  `json:"work_item_type"`
	State         string  `json:"state"`
	AssignedTo    *string `json:"assigned_to"`
	AreaPath      string  `json:"area_path"`
	IterationPath string  `json:"iteration_path"`
	Description   *string `json:"description"`
	CreatedDate   string  `json:"created_date"`
	ChangedDate   string  `json:"changed_date"`
	Tags          *string `json:"tags"`
}

// TestCase is the normalized read model for a test case.
// It extends the common work item shape with test-specific fields.
type TestCase struct {
	WorkItem
	TestSteps        *string `json:"test_steps"`
	Priority         *int    `json:"priority"`
	AutomationStatus *string `json:"automation_status"`
}

// RawWorkItem is a work item exactly as the REST API returns it: an
// identifier plus an open map of field reference names to values. The type
// tag inside Fields is advisory - callers that care must check it.
type RawWorkItem struct {
	ID     int                    `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// WorkItemType returns the record's declared type tag, or "" when absent.
func (r *RawWorkItem) WorkItemType() string {
	if r == nil || r.Fields == nil {
		return ""
	}
	tag, _ := r.Fields[FieldWorkItemType.ReferenceName()].(string)
	return tag
}

// WiqlRequest is the body of a WIQL query POST.
type WiqlRequest struct {
	Query string `json:"query"`
}

// WiqlResponse is the result of a WIQL query: matching work item references
// in query order, without field data.
type WiqlResponse struct {
	WorkItems []WorkItemRef `json:"workItems"`
}

// WorkItemRef is a work item reference returned by a WIQL query.
type WorkItemRef struct {
	ID  int    `json:"id"`
	URL string `json:"url,omitempty"`
}

// WorkItemBatchResponse is the result of a batch work item fetch.
type WorkItemBatchResponse struct {
	Count int           `json:"count"`
	Value []RawWorkItem `json:"value"`
}
