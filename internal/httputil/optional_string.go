package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OptionalString tells an absent PATCH field from an explicit null
// (RFC 7396). Collection updates use it for parent_id, where null moves
// the collection to the root and absence leaves it in place.
//   - Present=false: field absent
//   - Present=true, Value=nil: field is null
//   - Present=true, Value!=nil: field carries a string
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs for fields present in the body
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a string or null: %w", err)
	}
	o.Value = &s
	return nil
}
