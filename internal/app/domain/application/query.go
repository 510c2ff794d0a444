package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Query parameter and JSON field names shared by search and update.
const (
	FieldAppName  = "appName"
	FieldAppOwner = "appOwner"
	FieldIsValid  = "isValid"
)

// UpdatableFields lists the only fields a patch may carry, in the order they
// are reported to clients.
var UpdatableFields = []string{FieldAppOwner, FieldIsValid}

// Criteria is the optional filter set used by search. Empty strings and a nil
// IsValid impose no constraint.
type Criteria struct {
	AppName  string `json:"appName,omitempty"`
	AppOwner string `json:"appOwner,omitempty"`
	IsValid  *bool  `json:"isValid,omitempty"`
}

// ParseValidity normalizes a validity criterion that may arrive as a boolean
// or as text. Nil and the empty string mean "no constraint"; "true" and true
// select valid records; every other value selects invalid ones.
func ParseValidity(v any) *bool {
	switch val := v.(type) {
	case nil:
		return nil
	case *bool:
		return val
	case bool:
		return &val
	case string:
		if val == "" {
			return nil
		}
		b := val == "true"
		return &b
	default:
		b := false
		return &b
	}
}

// CriteriaFromQuery builds criteria from URL query values. Missing keys are
// treated the same as empty ones.
func CriteriaFromQuery(values url.Values) Criteria {
	return Criteria{
		AppName:  values.Get(FieldAppName),
		AppOwner: values.Get(FieldAppOwner),
		IsValid:  ParseValidity(values.Get(FieldIsValid)),
	}
}

// UnmarshalJSON accepts isValid as either a JSON boolean or a string.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw struct {
		AppName  string `json:"appName"`
		AppOwner string `json:"appOwner"`
		IsValid  any    `json:"isValid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.AppName = raw.AppName
	c.AppOwner = raw.AppOwner
	c.IsValid = ParseValidity(raw.IsValid)
	return nil
}

// IsEmpty reports whether the criteria constrain nothing.
func (c Criteria) IsEmpty() bool {
	return c.AppName == "" && c.AppOwner == "" && c.IsValid == nil
}

// Matches evaluates every present predicate and ANDs the results.
func (c Criteria) Matches(app Application) bool {
	if c.AppName != "" && !containsFold(app.AppName, c.AppName) {
		return false
	}
	if c.AppOwner != "" && !containsFold(app.AppData.AppOwner, c.AppOwner) {
		return false
	}
	if c.IsValid != nil && app.AppData.IsValid != *c.IsValid {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Patch carries the fields an update may change. Nil fields are left as they
// are.
type Patch struct {
	AppOwner *string `json:"appOwner,omitempty"`
	IsValid  *bool   `json:"isValid,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.AppOwner == nil && p.IsValid == nil
}

// Apply returns app with the patch applied. AppName and AppPath never change.
func (p Patch) Apply(app Application) Application {
	if p.AppOwner != nil {
		app.AppData.AppOwner = *p.AppOwner
	}
	if p.IsValid != nil {
		app.AppData.IsValid = *p.IsValid
	}
	return app
}

// DecodePatch parses an update body. Fields other than appOwner and isValid
// are returned sorted in unknown so the caller can reject the request; they
// are never applied, and their presence skips type checking of the allowed
// fields. A JSON null for an allowed field is treated as absent.
func DecodePatch(body []byte) (patch Patch, unknown []string, err error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Patch{}, nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Patch{}, nil, fmt.Errorf("decode update body: %w", err)
	}

	for name := range fields {
		if name != FieldAppOwner && name != FieldIsValid {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Patch{}, unknown, nil
	}

	if raw, ok := fields[FieldAppOwner]; ok && !isNull(raw) {
		var owner string
		if err := json.Unmarshal(raw, &owner); err != nil {
			return Patch{}, nil, &ValidationError{Index: -1, Field: FieldAppOwner, Reason: "must be a string"}
		}
		patch.AppOwner = &owner
	}
	if raw, ok := fields[FieldIsValid]; ok && !isNull(raw) {
		var valid bool
		if err := json.Unmarshal(raw, &valid); err != nil {
			return Patch{}, nil, &ValidationError{Index: -1, Field: FieldIsValid, Reason: "must be a boolean"}
		}
		patch.IsValid = &valid
	}
	return patch, nil, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
