package fhir

import (
	"fmt"
	"strings"
)

// ConvertResourceToBundleEntry wraps a resource as a bundle entry, deriving
// the fullUrl from the resource id when one is present.
func ConvertResourceToBundleEntry(resource Resource) BundleEntry {
	entry := BundleEntry{Resource: resource}
	if id := resource.ResourceID(); id != "" {
		entry.FullURL = "urn:uuid:" + id
	}
	return entry
}

// ResourcesOfType collects every entry resource of the concrete type T, in
// entry order.
func ResourcesOfType[T Resource](bundle *Bundle) []T {
	var resources []T
	for _, entry := range bundle.Entry {
		if resource, ok := entry.Resource.(T); ok {
			resources = append(resources, resource)
		}
	}
	return resources
}

// MessageHeaderOf returns the bundle's MessageHeader. Message bundles carry
// exactly one, as the first entry.
func MessageHeaderOf(bundle *Bundle) (*MessageHeader, error) {
	headers := ResourcesOfType[*MessageHeader](bundle)
	return onlyElement(headers, "Bundle.entry.resource.ofType(MessageHeader)")
}

// PatientOf returns the bundle's single Patient.
func PatientOf(bundle *Bundle) (*Patient, error) {
	patients := ResourcesOfType[*Patient](bundle)
	return onlyElement(patients, "Bundle.entry.resource.ofType(Patient)")
}

func onlyElement[T any](elements []T, path string) (T, error) {
	var zero T
	switch len(elements) {
	case 0:
		return zero, NewTooFewValuesError(fmt.Sprintf("Expected exactly one element at %s but found none.", path), path)
	case 1:
		return elements[0], nil
	default:
		return zero, NewTooManyValuesError(fmt.Sprintf("Expected exactly one element at %s but found %d.", path, len(elements)), path)
	}
}

// ResolveReference returns the entry resource whose fullUrl matches the
// literal reference, or nil when it cannot be resolved within the bundle.
func ResolveReference(bundle *Bundle, reference *Reference) Resource {
	if !reference.IsLiteral() {
		return nil
	}
	for _, entry := range bundle.Entry {
		if entry.FullURL == reference.Reference {
			return entry.Resource
		}
	}
	return nil
}

// ContainedResourceForReference resolves a local "#id" reference against a
// resource's contained list.
func ContainedResourceForReference(contained []ContainedResource, reference, path string) (Resource, error) {
	id := strings.TrimPrefix(reference, "#")
	for _, candidate := range contained {
		if candidate.Resource != nil && candidate.Resource.ResourceID() == id {
			return candidate.Resource, nil
		}
	}
	return nil, NewTooFewValuesError(fmt.Sprintf("No contained resource found for reference %q.", reference), path)
}

// ExtensionForURL finds the extension with the given url. It is an error for
// the extension to be absent or repeated.
func ExtensionForURL(extensions []Extension, url, path string) (*Extension, error) {
	var matches []*Extension
	for i := range extensions {
		if extensions[i].URL == url {
			matches = append(matches, &extensions[i])
		}
	}
	return onlyElement(matches, path)
}

// ExtensionForURLOrNil finds the extension with the given url, or returns
// nil when it is absent.
func ExtensionForURLOrNil(extensions []Extension, url string) *Extension {
	for i := range extensions {
		if extensions[i].URL == url {
			return &extensions[i]
		}
	}
	return nil
}

// IdentifierValueForSystem returns the value of the identifier with the
// given system. Absent or repeated identifiers are an error.
func IdentifierValueForSystem(identifiers []Identifier, system, path string) (string, error) {
	var matches []string
	for _, identifier := range identifiers {
		if identifier.System == system {
			matches = append(matches, identifier.Value)
		}
	}
	return onlyElement(matches, path)
}

// IdentifierValueForSystemOrEmpty returns the value of the identifier with
// the given system, or "" when it is absent.
func IdentifierValueForSystemOrEmpty(identifiers []Identifier, system string) string {
	for _, identifier := range identifiers {
		if identifier.System == system {
			return identifier.Value
		}
	}
	return ""
}

// CodingForSystem returns the first coding with the given system, or nil.
func CodingForSystem(concept *CodeableConcept, system string) *Coding {
	if concept == nil {
		return nil
	}
	for i := range concept.Coding {
		if concept.Coding[i].System == system {
			return &concept.Coding[i]
		}
	}
	return nil
}

// AddIdentifierIfNotPresent appends an identifier unless one with the same
// system and value is already held.
func AddIdentifierIfNotPresent(identifiers []Identifier, identifier Identifier) []Identifier {
	for _, existing := range identifiers {
		if existing.System == identifier.System && existing.Value == identifier.Value {
			return identifiers
		}
	}
	return append(identifiers, identifier)
}
