// Package domain defines check-config types for the configs service
package domain

// CheckConfig is one endpoint definition: the request sequence to play,
// what to capture from the final response, and how to classify it
type CheckConfig struct {
	Name              string        `json:"name,omitempty"`
	Requests          []RequestSpec `json:"requests" validate:"required,min=1,dive"`
	Capture           []CaptureSpec `json:"capture,omitempty" validate:"dive"`
	SuccessConditions []Condition   `json:"success_conditions,omitempty" validate:"dive"`
	FailureConditions []Condition   `json:"failure_conditions,omitempty" validate:"dive"`
}

// RequestSpec is one HTTP request in the sequence
// Data carries form fields, JSON a structured body; both are optional
type RequestSpec struct {
	Method  string            `json:"method,omitempty" validate:"omitempty,oneof=GET POST PUT DELETE get post put delete"`
	URL     string            `json:"url" validate:"required"`
	Headers map[string]string `json:"headers,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
	JSON    map[string]any    `json:"json,omitempty"`
	Verify  bool              `json:"verify,omitempty"`
}

// CaptureSpec extracts the first substring between Start and End
// from the final response body, trimmed
type CaptureSpec struct {
	Name  string `json:"name" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Condition is one classification rule
// Path applies to json_contains only: a dot path into the response document
type Condition struct {
	Type  string `json:"type" validate:"required,oneof=contains not_contains status_code json_contains"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}
