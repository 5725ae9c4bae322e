package domain

import "fmt"

// ParseWorkItem maps a raw work item payload into a WorkItem.
// Parsing is pure and idempotent. The only failure mode is a missing or
// non-positive identifier; every other field is optional and defaults to
// empty or absent, so partial payloads still produce a usable record.
func ParseWorkItem(raw *RawWorkItem) (*WorkItem, error) {
	if raw == nil {
		return nil, fmt.Errorf("work item payload is nil")
	}
	if raw.ID <= 0 {
		return nil, fmt.Errorf("work item payload is missing its identifier")
	}

	fields := raw.Fields

	return &WorkItem{
		ID:            raw.ID,
		Title:         stringField(fields, FieldTitle),
		WorkItemType:  stringField(fields, FieldWorkItemType),
		State:         stringField(fields, FieldState),
		AssignedTo:    parseAssignee(fields),
		AreaPath:      stringField(fields, FieldAreaPath),
		IterationPath: stringField(fields, FieldIterationPath),
		Description:   optionalStringField(fields, FieldDescription),
		CreatedDate:   stringField(fields, FieldCreatedDate),
		ChangedDate:   stringField(fields, FieldChangedDate),
		Tags:          optionalStringField(fields, FieldTags),
	}, nil
}

// ParseTestCase maps a raw work item payload into a TestCase.
// Same contract as ParseWorkItem, plus the test-specific fields.
func ParseTestCase(raw *RawWorkItem) (*TestCase, error) {
	workItem, err := ParseWorkItem(raw)
	if err != nil {
		return nil, err
	}

	return &TestCase{
		WorkItem:         *workItem,
		TestSteps:        optionalStringField(raw.Fields, FieldTestSteps),
		Priority:         optionalIntField(raw.Fields, FieldPriority),
		AutomationStatus: optionalStringField(raw.Fields, FieldAutomationStatus),
	}, nil
}

// ParseWorkItems parses a batch of raw work items into WorkItems.
// Records that fail to parse are skipped rather than aborting the batch;
// the second return value is the number skipped.
func ParseWorkItems(raws []RawWorkItem) ([]WorkItem, int) {
	parsed := make([]WorkItem, 0, len(raws))
	skipped := 0

	for i := range raws {
		workItem, err := ParseWorkItem(&raws[i])
		if err != nil {
			skipped++
			continue
		}
		parsed = append(parsed, *workItem)
	}

	return parsed, skipped
}

// ParseTestCases parses a batch of raw work items into TestCases.
// Same partition contract as ParseWorkItems.
func ParseTestCases(raws []RawWorkItem) ([]TestCase, int) {
	parsed := make([]TestCase, 0, len(raws))
	skipped := 0

	for i := range raws {
		testCase, err := ParseTestCase(&raws[i])
		if err != nil {
			skipped++
			continue
		}
		parsed = append(parsed, *testCase)
	}

	return parsed, skipped
}

// parseAssignee resolves the polymorphic System.AssignedTo value.
// Identity objects collapse to their display name; plain strings pass
// through verbatim; anything else reads as unassigned.
func parseAssignee(fields map[string]interface{}) *string {
	value, exists := fields[FieldAssignedTo.ReferenceName()]
	if !exists {
		return nil
	}

	switch v := value.(type) {
	case map[string]interface{}:
		if name, ok := v["displayName"].(string); ok {
			return &name
		}
		return nil
	case string:
		return &v
	default:
		return nil
	}
}

// stringField reads a string field, defaulting to "" when absent or not a
// string.
func stringField(fields map[string]interface{}, field Field) string {
	value, _ := fields[field.ReferenceName()].(string)
	return value
}

// optionalStringField reads a string field, preserving absence as nil.
func optionalStringField(fields map[string]interface{}, field Field) *string {
	value, ok := fields[field.ReferenceName()].(string)
	if !ok {
		return nil
	}
	return &value
}

// optionalIntField reads a numeric field, preserving absence as nil.
// JSON numbers arrive as float64.
func optionalIntField(fields map[string]interface{}, field Field) *int {
	switch v := fields[field.ReferenceName()].(type) {
	case float64:
		value := int(v)
		return &value
	case int:
		return &v
	default:
		return nil
	}
}
