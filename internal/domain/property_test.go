package domain

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestParserProperties verifies invariants of the work item parser.
func TestParserProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: any record with a positive identifier parses, regardless
	// of what the field map contains
	properties.Property("parse is total for id-bearing records", prop.ForAll(
		func(id int, title string, state string) bool {
			raw := &RawWorkItem{
				ID: id,
				Fields: map[string]interface{}{
					"System.Title": title,
					"System.State": state,
				},
			}
			workItem, err := ParseWorkItem(raw)
			return err == nil && workItem.ID == id && workItem.Title == title && workItem.State == state
		},
		gen.IntRange(1, 1_000_000),
		gen.AnyString(),
		gen.AnyString(),
	))

	// Property: parsing the same payload twice yields equal records
	properties.Property("parse is idempotent", prop.ForAll(
		func(id int, title string) bool {
			raw := &RawWorkItem{
				ID:     id,
				Fields: map[string]interface{}{"System.Title": title},
			}
			first, err1 := ParseWorkItem(raw)
			second, err2 := ParseWorkItem(raw)
			return err1 == nil && err2 == nil && reflect.DeepEqual(first, second)
		},
		gen.IntRange(1, 1_000_000),
		gen.AnyString(),
	))

	// Property: a non-positive identifier is the only failure mode
	properties.Property("non-positive ids fail", prop.ForAll(
		func(id int) bool {
			_, err := ParseWorkItem(&RawWorkItem{ID: id})
			return err != nil
		},
		gen.IntRange(-1_000_000, 0),
	))

	// Property: a string assignee passes through verbatim
	properties.Property("string assignee is verbatim", prop.ForAll(
		func(assignee string) bool {
			raw := &RawWorkItem{
				ID:     1,
				Fields: map[string]interface{}{"System.AssignedTo": assignee},
			}
			workItem, err := ParseWorkItem(raw)
			return err == nil && workItem.AssignedTo != nil && *workItem.AssignedTo == assignee
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestPatchDocumentProperties verifies invariants of the patch builder.
func TestPatchDocumentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: every recorded operation count matches the number of
	// valid appends, in order
	properties.Property("operations preserve insertion order", prop.ForAll(
		func(values []string) bool {
			patch := NewPatchDocument()
			for _, value := range values {
				patch.Add(FieldTitle, value)
			}
			ops := patch.Operations()
			if len(ops) != len(values) {
				return false
			}
			for i, op := range ops {
				if op.Value != values[i] || op.Path != "/fields/System.Title" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
	))

	// Property: recognized fields never produce a construction error
	properties.Property("known fields are accepted", prop.ForAll(
		func(fieldIndex int, value string) bool {
			field := QueryFields()[fieldIndex%len(QueryFields())]
			patch := NewPatchDocument()
			patch.Add(field, value)
			return patch.Err() == nil && patch.Len() == 1
		},
		gen.IntRange(0, 100),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
