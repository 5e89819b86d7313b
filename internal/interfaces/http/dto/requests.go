// Package dto contains the request and response bodies of the topic graph API.
package dto

import "curriculum-graph/internal/domain/topic"

// CreateTopicRequest creates one Topic node.
type CreateTopicRequest struct {
	Name string `json:"name" validate:"notblank,max=200"`
}

// FanRequest links root with each target.
type FanRequest struct {
	Root    string   `json:"root" validate:"notblank,max=200"`
	Targets []string `json:"targets" validate:"required,min=1,max=500,dive,notblank,max=200"`
}

// ChainRequest links consecutive names.
type ChainRequest struct {
	Chain []string `json:"chain" validate:"required,min=1,max=500,dive,notblank,max=200"`
}

// SubTopicsRequest creates labelled sub-topics under root.
type SubTopicsRequest struct {
	Class     topic.ClassTag `json:"class" validate:"classtag"`
	Root      string         `json:"root" validate:"notblank,max=200"`
	SubTopics []string       `json:"subtopics" validate:"required,min=1,max=500,dive,notblank,max=200"`
}

// SubTopicPathRequest creates a labelled chain hanging off path[0].
type SubTopicPathRequest struct {
	Class topic.ClassTag `json:"class" validate:"classtag"`
	Path  []string       `json:"path" validate:"required,min=1,max=500,dive,notblank,max=200"`
}

// RenameRequest renames class-labelled nodes.
type RenameRequest struct {
	OldName string         `json:"old_name" validate:"notblank,max=200"`
	NewName string         `json:"new_name" validate:"notblank,max=200"`
	Class   topic.ClassTag `json:"class" validate:"classtag"`
}
