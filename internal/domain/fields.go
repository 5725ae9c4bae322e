package domain

import "fmt"

// Field identifies a recognized work item field.
// The set is closed: only fields listed here can appear in a patch document
// or be selected by a query, so an unknown field is a wiring bug rather than
// a runtime surprise from the remote API.
type Field int

const (
	FieldTitle Field = iota
	FieldWorkItemType
	FieldState
	FieldAssignedTo
	FieldDescription
	FieldAreaPath
	FieldIterationPath
	FieldCreatedDate
	FieldChangedDate
	FieldTags
	FieldPriority
	FieldStoryPoints
	FieldTestSteps
	FieldAutomationStatus
)

// ReferenceName returns the Azure DevOps reference name for the field
// (e.g., "System.Title"). Returns an empty string for unrecognized values.
func (f Field) ReferenceName() string {
	switch f {
	case FieldTitle:
		return "System.Title"
	case FieldWorkItemType:
		return "System.WorkItemType"
	case FieldState:
		return "System.State"
	case FieldAssignedTo:
		return "System.AssignedTo"
	case FieldDescription:
		return "System.Description"
	case FieldAreaPath:
		return "System.AreaPath"
	case FieldIterationPath:
		return "System.IterationPath"
	case FieldCreatedDate:
		return "System.CreatedDate"
	case FieldChangedDate:
		return "System.ChangedDate"
	case FieldTags:
		return "System.Tags"
	case FieldPriority:
		return "Microsoft.VSTS.Common.Priority"
	case FieldStoryPoints:
		return "Microsoft.VSTS.Scheduling.StoryPoints"
	case FieldTestSteps:
		return "Microsoft.VSTS.TCM.Steps"
	case FieldAutomationStatus:
		return "Microsoft.VSTS.TCM.AutomationStatus"
	default:
		return ""
	}
}

// QueryFields returns the fields selected by every work item query, in the
// order they appear in the WIQL SELECT clause (after System.Id).
func QueryFields() []Field {
	return []Field{
		FieldTitle,
		FieldWorkItemType,
		FieldState,
		FieldAssignedTo,
		FieldAreaPath,
		FieldIterationPath,
		FieldDescription,
		FieldCreatedDate,
		FieldChangedDate,
		FieldTags,
		FieldTestSteps,
		FieldPriority,
		FieldAutomationStatus,
	}
}

// PatchOperation is a single entry of a JSON patch document as Azure DevOps
// expects it (application/json-patch+json).
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// PatchDocument builds an ordered JSON patch document targeting work item
// fields. Operation order is preserved: when the same field appears twice,
// the later entry wins on the server, which is relied on for the forced
// default state on creation.
type PatchDocument struct {
	ops []PatchOperation
	err error
}

// NewPatchDocument creates an empty patch document.
func NewPatchDocument() *PatchDocument {
	return &PatchDocument{}
}

// Add appends an "add" operation for the given field.
func (d *PatchDocument) Add(field Field, value interface{}) *PatchDocument {
	return d.append("add", field, value)
}

// Replace appends a "replace" operation for the given field.
func (d *PatchDocument) Replace(field Field, value interface{}) *PatchDocument {
	return d.append("replace", field, value)
}

// append records an operation, or the first error for an unrecognized field.
func (d *PatchDocument) append(op string, field Field, value interface{}) *PatchDocument {
	refName := field.ReferenceName()
	if refName == "" {
		if d.err == nil {
			d.err = fmt.Errorf("unrecognized work item field: %d", int(field))
		}
		return d
	}

	d.ops = append(d.ops, PatchOperation{
		Op:    op,
		Path:  "/fields/" + refName,
		Value: value,
	})
	return d
}

// Err returns the first construction error, if any.
func (d *PatchDocument) Err() error {
	return d.err
}

// Len returns the number of recorded operations.
func (d *PatchDocument) Len() int {
	return len(d.ops)
}

// Operations returns the recorded operations in insertion order.
func (d *PatchDocument) Operations() []PatchOperation {
	return d.ops
}
