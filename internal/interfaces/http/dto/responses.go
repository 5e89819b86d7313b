package dto

import "curriculum-graph/internal/domain/topic"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string       `json:"error"`
	Code      string       `json:"code,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
	Fields    []FieldError `json:"fields,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NamesResponse lists node names.
type NamesResponse struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

// DuplicatesResponse lists names carried by more than one node.
type DuplicatesResponse struct {
	Duplicates []topic.DuplicateName `json:"duplicates"`
}

// TopicResponse acknowledges a created topic.
type TopicResponse struct {
	Name string `json:"name"`
}

// LinkResponse carries the per-pair report of a link call.
type LinkResponse struct {
	Links   topic.LinkReport `json:"links"`
	Found   int              `json:"found"`
	Missing int              `json:"missing"`
}

// NewLinkResponse summarises report.
func NewLinkResponse(report topic.LinkReport) LinkResponse {
	if report == nil {
		report = topic.LinkReport{}
	}
	found, missing := report.Counts()
	return LinkResponse{Links: report, Found: found, Missing: missing}
}

// SubTopicsResponse acknowledges created sub-topic nodes.
type SubTopicsResponse struct {
	Class     topic.ClassTag  `json:"class"`
	Namespace topic.Namespace `json:"namespace"`
}

// RenameResponse reports how many nodes were renamed.
type RenameResponse struct {
	Renamed int `json:"renamed"`
}

// ClassResponse is one catalogue row.
type ClassResponse struct {
	Tag       topic.ClassTag  `json:"tag"`
	Namespace topic.Namespace `json:"namespace"`
}

// ClassesResponse lists the catalogue in declaration order.
type ClassesResponse struct {
	Classes []ClassResponse `json:"classes"`
}

// NewClassesResponse converts a catalogue.
func NewClassesResponse(catalog *topic.Catalog) ClassesResponse {
	entries := catalog.Entries()
	out := make([]ClassResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ClassResponse{Tag: e.Tag, Namespace: e.Namespace})
	}
	return ClassesResponse{Classes: out}
}
