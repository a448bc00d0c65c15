// Package pipeline chains extraction stages over batches of documents.
// Stages run in order; a document that fails a stage is recorded and skips
// every later stage, so one broken file never aborts the batch.
package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// Stage is one step of a document pipeline. Process receives a single
// document and returns its transformed version; the key identifies the
// document within the batch for error reporting.
type Stage interface {
	// Name labels the stage in failure records and logs.
	Name() string

	// Mode selects how the stage is scheduled across a batch.
	Mode() batch.Mode

	Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error)
}

// BatchStage is implemented by stages that must see the whole batch at once,
// such as converters that pass all inputs to a single subprocess invocation.
// Run prefers ProcessBatch over per-item Process when a stage implements it.
// Implementations must account for every input key in either the returned
// successes or failures.
type BatchStage interface {
	Stage

	ProcessBatch(ctx context.Context, docs *orderedmap.OrderedMap[string, *doc.Document]) (*orderedmap.OrderedMap[string, *doc.Document], map[string]*doc.ProcessingError)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces the logger used for stage failure reporting.
func WithLogger(log *logrus.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// Pipeline is an ordered list of stages applied to a batch of documents.
type Pipeline struct {
	name   string
	stages []Stage
	log    *logrus.Logger
}

// New creates a Pipeline that applies stages in the given order.
func New(name string, stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:   name,
		stages: stages,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pipeline's label.
func (p *Pipeline) Name() string { return p.name }

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage { return p.stages }

// Run drives every document through the stages in order. Documents that fail
// a stage are recorded in the failure map under their batch key and are not
// passed to later stages. The returned successes preserve input insertion
// order; the success and failure key sets are disjoint and together cover the
// input exactly.
func (p *Pipeline) Run(
	ctx context.Context,
	docs *orderedmap.OrderedMap[string, *doc.Document],
	opts batch.Options,
) (*orderedmap.OrderedMap[string, *doc.Document], map[string]*doc.ProcessingError) {
	live := docs
	if live == nil {
		live = orderedmap.New[string, *doc.Document]()
	}
	failures := map[string]*doc.ProcessingError{}

	for _, st := range p.stages {
		if live.Len() == 0 {
			break
		}

		var (
			ok   *orderedmap.OrderedMap[string, *doc.Document]
			errs map[string]*doc.ProcessingError
		)
		if bs, isBatch := st.(BatchStage); isBatch {
			ok, errs = bs.ProcessBatch(ctx, live)
		} else {
			ok, errs = batch.Run(ctx, st.Mode(), live, opts, func(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
				return st.Process(ctx, key, d)
			})
		}

		// A stage must account for every input; anything it silently drops
		// is recorded as a failure so the batch bookkeeping stays exact.
		for pair := live.Oldest(); pair != nil; pair = pair.Next() {
			if _, found := ok.Get(pair.Key); found {
				continue
			}
			if _, failed := errs[pair.Key]; failed {
				continue
			}
			if errs == nil {
				errs = map[string]*doc.ProcessingError{}
			}
			errs[pair.Key] = doc.Errorf(doc.KindExternal, st.Name(), "stage returned no result for %s", pair.Key)
		}

		for key, pe := range errs {
			if pe.Stage == "" {
				pe.Stage = st.Name()
			}
			if pe.File == "" {
				pe.File = key
			}
			failures[key] = pe
			p.log.WithFields(logrus.Fields{
				"pipeline": p.name,
				"stage":    st.Name(),
				"file":     key,
				"kind":     pe.Kind.String(),
			}).Warn("stage failed")
		}

		live = ok
	}

	return live, failures
}
