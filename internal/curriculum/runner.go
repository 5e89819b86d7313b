package curriculum

import (
	"context"
	"fmt"
	"time"

	"curriculum-graph/internal/domain/topic"

	"go.uber.org/zap"
)

// Builder is the subset of the topic graph builder a feed drives.
type Builder interface {
	CreateTopic(ctx context.Context, name string) error
	CreateRelationshipsToOne(ctx context.Context, root string, targets ...string) (topic.LinkReport, error)
	CreateRelationshipsToMany(ctx context.Context, root string, targets ...string) (topic.LinkReport, error)
	CreateRelationshipsConsecutively(ctx context.Context, chain ...string) (topic.LinkReport, error)
	LinkSubTopicsToOne(ctx context.Context, class topic.ClassTag, root string, subtopics ...string) error
	LinkSubTopicsConsecutively(ctx context.Context, class topic.ClassTag, path ...string) error
	RenameNode(ctx context.Context, oldName, newName string, class topic.ClassTag) (int, error)
}

// Summary describes a completed run.
type Summary struct {
	Sections int
	Steps    int
	Links    topic.LinkReport
	Renamed  int
	Duration time.Duration
}

// Missing returns every link the run could not make.
func (s Summary) Missing() topic.LinkReport {
	return s.Links.Missing()
}

// StepError identifies the step that halted a run.
type StepError struct {
	Section string
	Index   int
	Kind    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("section %s step %d (%s): %v", e.Section, e.Index, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes sections in order and stops at the first failing step.
type Runner struct {
	builder Builder
	logger  *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(builder Builder, logger *zap.Logger) *Runner {
	return &Runner{builder: builder, logger: logger.Named("curriculum")}
}

// Run executes sections in order. Missing link endpoints are collected in the
// summary; any error, store or validation, halts the run.
func (r *Runner) Run(ctx context.Context, sections ...Section) (Summary, error) {
	start := time.Now()
	var summary Summary

	for _, sec := range sections {
		r.logger.Info("running section", zap.String("section", sec.Name), zap.Int("steps", len(sec.Steps)))

		for i, step := range sec.Steps {
			if err := ctx.Err(); err != nil {
				return summary, &StepError{Section: sec.Name, Index: i, Kind: step.Kind(), Err: err}
			}
			if err := r.apply(ctx, step, &summary); err != nil {
				return summary, &StepError{Section: sec.Name, Index: i, Kind: step.Kind(), Err: err}
			}
			summary.Steps++
		}
		summary.Sections++
	}

	summary.Duration = time.Since(start)
	found, missing := summary.Links.Counts()
	r.logger.Info("syllabus run complete",
		zap.Int("sections", summary.Sections),
		zap.Int("steps", summary.Steps),
		zap.Int("links_found", found),
		zap.Int("links_missing", missing),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (r *Runner) apply(ctx context.Context, step Step, summary *Summary) error {
	var (
		report topic.LinkReport
		err    error
	)

	switch {
	case step.Topic != "":
		return r.builder.CreateTopic(ctx, step.Topic)
	case step.SubTopicsToOne != nil:
		s := step.SubTopicsToOne
		return r.builder.LinkSubTopicsToOne(ctx, s.Class, s.Root, s.SubTopics...)
	case step.SubTopicsChain != nil:
		s := step.SubTopicsChain
		return r.builder.LinkSubTopicsConsecutively(ctx, s.Class, s.Path...)
	case step.Rename != nil:
		n, err := r.builder.RenameNode(ctx, step.Rename.From, step.Rename.To, step.Rename.Class)
		summary.Renamed += n
		return err
	case step.ToOne != nil:
		report, err = r.builder.CreateRelationshipsToOne(ctx, step.ToOne.Root, step.ToOne.Targets...)
	case step.ToMany != nil:
		report, err = r.builder.CreateRelationshipsToMany(ctx, step.ToMany.Root, step.ToMany.Targets...)
	case step.Chain != nil:
		report, err = r.builder.CreateRelationshipsConsecutively(ctx, step.Chain...)
	default:
		return fmt.Errorf("empty step")
	}

	if err != nil {
		return err
	}
	summary.Links = append(summary.Links, report...)
	return nil
}
