// Package topic holds the curriculum graph's domain vocabulary: syllabus class
// tags, the namespaces they map to, and the reports produced by link calls.
package topic

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "curriculum-graph/internal/errors"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ClassTag is the short code of a syllabus unit, e.g. "FP1".
type ClassTag string

// Namespace is the node label applied to sub-topics created under a class.
type Namespace string

// TopicLabel is carried by every node made with CreateTopic.
const TopicLabel = "Topic"

// Reference class tags.
const (
	ClassALevelMaths      ClassTag = "M"
	ClassCorePure         ClassTag = "CP"
	ClassFurtherPure1     ClassTag = "FP1"
	ClassFurtherPure2     ClassTag = "FP2"
	ClassFurtherStats1    ClassTag = "FS1"
	ClassFurtherStats2    ClassTag = "FS2"
	ClassDecisionMaths1   ClassTag = "D1"
	ClassDecisionMaths2   ClassTag = "D2"
	ClassCambridgeCompSci ClassTag = "Uni"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClassEntry is one row of a catalogue.
type ClassEntry struct {
	Tag       ClassTag
	Namespace Namespace
}

// Catalog maps class tags to namespaces. It is immutable once built and keeps
// the order in which entries were declared.
type Catalog struct {
	entries *orderedmap.OrderedMap[ClassTag, Namespace]
}

// NewCatalog validates entries and builds a catalogue from them.
func NewCatalog(entries ...ClassEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidCatalog, "class catalogue is empty")
	}

	m := orderedmap.New[ClassTag, Namespace]()
	for _, e := range entries {
		if strings.TrimSpace(string(e.Tag)) == "" {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidCatalog, "class tag must not be blank")
		}
		if !namespacePattern.MatchString(string(e.Namespace)) {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidCatalog,
				fmt.Sprintf("namespace %q for class %q is not a valid label", e.Namespace, e.Tag))
		}
		if _, present := m.Set(e.Tag, e.Namespace); present {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidCatalog,
				fmt.Sprintf("class tag %q declared twice", e.Tag))
		}
	}

	return &Catalog{entries: m}, nil
}

// DefaultCatalog returns the reference deployment's table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultEntries()...)
	if err != nil {
		panic(fmt.Sprintf("default class catalogue is invalid: %v", err))
	}
	return c
}

// DefaultEntries lists the reference syllabus classes.
func DefaultEntries() []ClassEntry {
	return []ClassEntry{
		{ClassALevelMaths, "A_level_maths"},
		{ClassCorePure, "FM_core_pure"},
		{ClassFurtherPure1, "FM_further_pure_1"},
		{ClassFurtherPure2, "FM_further_pure_2"},
		{ClassFurtherStats1, "FM_further_stats_1"},
		{ClassFurtherStats2, "FM_further_stats_2"},
		{ClassDecisionMaths1, "FM_decision_maths_1"},
		{ClassDecisionMaths2, "FM_decision_maths_2"},
		{ClassCambridgeCompSci, "Cambridge_compsci"},
	}
}

// Namespace resolves a class tag.
func (c *Catalog) Namespace(tag ClassTag) (Namespace, error) {
	ns, ok := c.entries.Get(tag)
	if !ok {
		return "", apperrors.NewValidation(apperrors.CodeUnknownClass, fmt.Sprintf("unknown class tag %q", tag))
	}
	return ns, nil
}

// Has reports whether tag is part of the catalogue.
func (c *Catalog) Has(tag ClassTag) bool {
	_, ok := c.entries.Get(tag)
	return ok
}

// Entries returns a copy of the catalogue in declaration order.
func (c *Catalog) Entries() []ClassEntry {
	out := make([]ClassEntry, 0, c.entries.Len())
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, ClassEntry{Tag: pair.Key, Namespace: pair.Value})
	}
	return out
}

// Len returns the number of classes.
func (c *Catalog) Len() int {
	return c.entries.Len()
}
