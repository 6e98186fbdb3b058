package workflow

import "encoding/json"

// deepCopyValue returns an independent copy of v for Fork, which must not
// let a child workflow's mutations reach back into the parent's event log
// or snapshot table. Event values are meant to be wire-serializable (the
// same StepEvent.V a Store round-trips as JSON), so a marshal/unmarshal
// round-trip is a reasonable general-purpose deep copy; nil, and any
// value that fails to marshal (a closure captured by a careless node body,
// for instance), is returned unchanged rather than dropped.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
