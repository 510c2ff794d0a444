package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ValidationError describes a structural problem with a record.
type ValidationError struct {
	// Index is the record's position in the collection, or -1 when the record
	// was validated on its own.
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = e.Field + " " + e.Reason
	}
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %s", e.Index, msg)
	}
	return msg
}

var (
	requiredFields     = []string{FieldAppName, "appData"}
	requiredDataFields = []string{"appPath", FieldAppOwner, FieldIsValid}
)

// ValidateRecord checks that a decoded record carries every required field
// with the right primitive type. It is never called implicitly by the record
// store.
func ValidateRecord(record map[string]any) error {
	return validateRecord(-1, record)
}

func validateRecord(index int, record map[string]any) error {
	for _, field := range requiredFields {
		if _, ok := record[field]; !ok {
			return &ValidationError{Index: index, Field: field, Reason: "is a required field"}
		}
	}
	data, ok := record["appData"].(map[string]any)
	if !ok {
		return &ValidationError{Index: index, Field: "appData", Reason: "must be an object"}
	}
	for _, field := range requiredDataFields {
		if _, ok := data[field]; !ok {
			return &ValidationError{Index: index, Field: "appData." + field, Reason: "is a required field"}
		}
	}

	if _, ok := record[FieldAppName].(string); !ok {
		return &ValidationError{Index: index, Field: FieldAppName, Reason: "must be a string"}
	}
	if _, ok := data["appPath"].(string); !ok {
		return &ValidationError{Index: index, Field: "appPath", Reason: "must be a string"}
	}
	if _, ok := data[FieldAppOwner].(string); !ok {
		return &ValidationError{Index: index, Field: FieldAppOwner, Reason: "must be a string"}
	}
	if _, ok := data[FieldIsValid].(bool); !ok {
		return &ValidationError{Index: index, Field: FieldIsValid, Reason: "must be a boolean"}
	}
	return nil
}

// ValidateDocument checks a raw persisted document: it must be a JSON array of
// structurally valid records with unique names. All findings are returned
// joined; a nil result means the document is clean.
func ValidateDocument(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return &ValidationError{Index: -1, Reason: "document is not an array of records"}
	}
	var records []map[string]any
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return &ValidationError{Index: -1, Reason: fmt.Sprintf("document is not an array of records: %v", err)}
	}

	var errs []error
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if err := validateRecord(i, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		name := rec[FieldAppName].(string)
		if first, dup := seen[name]; dup {
			errs = append(errs, &ValidationError{
				Index:  i,
				Field:  FieldAppName,
				Reason: fmt.Sprintf("duplicates record %d (%q)", first, name),
			})
			continue
		}
		seen[name] = i
	}
	return errors.Join(errs...)
}

// Findings flattens an error returned by ValidateDocument into its individual
// validation errors.
func Findings(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Findings(e)...)
		}
		return out
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		out = append(out, verr)
	}
	return out
}
