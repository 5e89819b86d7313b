// Package curriculum holds the syllabus data feed and runs it against a topic
// graph builder. The feed is declarative: sections are ordered lists of
// builder calls and groups name the sections run together.
package curriculum

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"curriculum-graph/internal/domain/topic"
	apperrors "curriculum-graph/internal/errors"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

//go:embed syllabus.yaml
var syllabusYAML string

// Step is one builder call. Exactly one field is set.
type Step struct {
	Topic          string        `yaml:"topic,omitempty"`
	SubTopicsToOne *SubTopics    `yaml:"subtopics_to_one,omitempty"`
	SubTopicsChain *SubTopicPath `yaml:"subtopics_chain,omitempty"`
	ToOne          *Fan          `yaml:"to_one,omitempty"`
	ToMany         *Fan          `yaml:"to_many,omitempty"`
	Chain          []string      `yaml:"chain,omitempty"`
	Rename         *Rename       `yaml:"rename,omitempty"`
}

// SubTopics creates labelled children under root.
type SubTopics struct {
	Class     topic.ClassTag `yaml:"class"`
	Root      string         `yaml:"root"`
	SubTopics []string       `yaml:"subtopics"`
}

// SubTopicPath creates a labelled chain hanging off path[0].
type SubTopicPath struct {
	Class topic.ClassTag `yaml:"class"`
	Path  []string       `yaml:"path"`
}

// Fan links root with each existing target.
type Fan struct {
	Root    string   `yaml:"root"`
	Targets []string `yaml:"targets"`
}

// Rename renames a class-labelled node.
type Rename struct {
	From  string         `yaml:"from"`
	To    string         `yaml:"to"`
	Class topic.ClassTag `yaml:"class"`
}

// Kind names the builder call a step makes.
func (s Step) Kind() string {
	switch {
	case s.Topic != "":
		return "topic"
	case s.SubTopicsToOne != nil:
		return "subtopics_to_one"
	case s.SubTopicsChain != nil:
		return "subtopics_chain"
	case s.ToOne != nil:
		return "to_one"
	case s.ToMany != nil:
		return "to_many"
	case s.Chain != nil:
		return "chain"
	case s.Rename != nil:
		return "rename"
	default:
		return ""
	}
}

func (s Step) fieldsSet() int {
	n := 0
	if s.Topic != "" {
		n++
	}
	if s.SubTopicsToOne != nil {
		n++
	}
	if s.SubTopicsChain != nil {
		n++
	}
	if s.ToOne != nil {
		n++
	}
	if s.ToMany != nil {
		n++
	}
	if s.Chain != nil {
		n++
	}
	if s.Rename != nil {
		n++
	}
	return n
}

// Section is a named, ordered list of steps.
type Section struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Feed is a parsed syllabus.
type Feed struct {
	sections *orderedmap.OrderedMap[string, Section]
	groups   map[string][]string
}

type feedDocument struct {
	Groups   map[string][]string `yaml:"groups"`
	Sections []Section           `yaml:"sections"`
}

// Parse reads a feed document and checks its structure.
func Parse(r io.Reader) (*Feed, error) {
	var doc feedDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, fmt.Sprintf("malformed syllabus feed: %v", err))
	}

	feed := &Feed{
		sections: orderedmap.New[string, Section](),
		groups:   doc.Groups,
	}
	for _, sec := range doc.Sections {
		if sec.Name == "" {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "syllabus section without a name")
		}
		if _, dup := feed.sections.Get(sec.Name); dup {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, fmt.Sprintf("duplicate syllabus section %q", sec.Name))
		}
		for i, step := range sec.Steps {
			if step.fieldsSet() != 1 {
				return nil, apperrors.NewValidation(apperrors.CodeInvalidInput,
					fmt.Sprintf("section %q step %d must set exactly one call", sec.Name, i))
			}
		}
		feed.sections.Set(sec.Name, sec)
	}
	for group, names := range doc.Groups {
		for _, name := range names {
			if _, ok := feed.sections.Get(name); !ok {
				return nil, apperrors.NewValidation(apperrors.CodeInvalidInput,
					fmt.Sprintf("group %q references unknown section %q", group, name))
			}
		}
	}
	return feed, nil
}

// Default returns the embedded syllabus.
func Default() (*Feed, error) {
	return Parse(strings.NewReader(syllabusYAML))
}

// Section looks up a section by name.
func (f *Feed) Section(name string) (Section, bool) {
	return f.sections.Get(name)
}

// SectionNames lists sections in document order.
func (f *Feed) SectionNames() []string {
	names := make([]string, 0, f.sections.Len())
	for pair := f.sections.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// GroupNames lists group names alphabetically.
func (f *Feed) GroupNames() []string {
	names := make([]string, 0, len(f.groups))
	for name := range f.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands group and section names, in order, into sections.
func (f *Feed) Resolve(names ...string) ([]Section, error) {
	var out []Section
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if members, ok := f.groups[name]; ok {
			for _, m := range members {
				sec, _ := f.sections.Get(m)
				out = append(out, sec)
			}
			continue
		}
		sec, ok := f.sections.Get(name)
		if !ok {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, fmt.Sprintf("unknown syllabus section or group %q", name))
		}
		out = append(out, sec)
	}
	return out, nil
}
