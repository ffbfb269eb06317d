package tracker

import (
	"strings"

	"github.com/eps/gateway/internal/platform/fhir"
)

// Query holds the recognised Task search parameters. Values may be
// namespaced with system|value syntax; the prefix is stripped when it
// matches the parameter's expected system.
type Query struct {
	Identifier        string
	FocusIdentifier   string
	PatientIdentifier string
}

// IsEmpty reports whether no search parameter was supplied.
func (q Query) IsEmpty() bool {
	return q.Identifier == "" && q.FocusIdentifier == "" && q.PatientIdentifier == ""
}

// PrescriptionID returns the prescription identifier to query Spine with,
// preferring focus:identifier over identifier.
func (q Query) PrescriptionID() string {
	if value := stripSystemPrefix(q.FocusIdentifier, fhir.SystemPrescriptionOrderNumber); value != "" {
		return value
	}
	return stripSystemPrefix(q.Identifier, fhir.SystemPrescriptionOrderNumber)
}

// NHSNumber returns the patient identifier to query Spine with.
func (q Query) NHSNumber() string {
	return stripSystemPrefix(q.PatientIdentifier, fhir.SystemNHSNumber)
}

// Matches reports whether a Task satisfies every supplied parameter.
// Absent parameters impose no constraint; supplied ones must all equal
// their corresponding Task field.
func (q Query) Matches(task *fhir.Task) bool {
	for _, constraint := range []struct {
		value string
		field *fhir.Reference
	}{
		{q.PrescriptionID(), task.Focus},
		{q.NHSNumber(), task.For},
	} {
		if constraint.value == "" {
			continue
		}
		if constraint.field == nil || constraint.field.Identifier == nil ||
			constraint.field.Identifier.Value != constraint.value {
			return false
		}
	}
	return true
}

// FilterBundle removes Tasks that do not satisfy the query and re-derives
// the searchset total from the surviving entries.
func (q Query) FilterBundle(bundle *fhir.Bundle) {
	filtered := bundle.Entry[:0]
	for _, entry := range bundle.Entry {
		task, ok := entry.Resource.(*fhir.Task)
		if !ok || !q.Matches(task) {
			continue
		}
		filtered = append(filtered, entry)
	}
	bundle.Entry = filtered
	total := len(filtered)
	bundle.Total = &total
}

func stripSystemPrefix(raw, system string) string {
	return strings.TrimPrefix(raw, system+"|")
}
