// Package batch runs a function over an ordered set of keyed items with
// per-item error isolation. One failing item never aborts the batch; its
// failure is recorded and the rest continue.
package batch

import (
	"context"
	"fmt"
	"runtime"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dusk-indust/pdferret/internal/doc"
)

// Mode selects how items within a batch are scheduled.
type Mode int

const (
	// Serial processes items one at a time in insertion order.
	Serial Mode = iota

	// Threads processes items concurrently in goroutines. Suitable for
	// I/O-bound work such as HTTP calls.
	Threads

	// Processes is scheduled like Threads but signals that the work is
	// subprocess-shaped (LibreOffice, pdftoppm, ocrmypdf). Items must be
	// materializable to an on-disk path.
	Processes
)

var modeNames = [...]string{
	Serial:    "serial",
	Threads:   "threads",
	Processes: "processes",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Options bounds the executor. Zero values fall back to defaults: Workers to
// the CPU count, BatchSize to twice the worker count.
type Options struct {
	Workers   int
	BatchSize int
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 2 * o.Workers
	}
	return o
}

// Func is the per-item work function. The key identifies the item within the
// batch; errors are recorded against it.
type Func[I, O any] func(ctx context.Context, key string, item I) (O, error)

// Run applies fn to every item. It returns the successes in input insertion
// order and the failures keyed by item; the two key sets are disjoint and
// together cover the input exactly.
//
// In Serial mode items run one by one. In Threads and Processes mode the
// input is split into consecutive batches of Options.BatchSize; items within
// a batch run concurrently, at most Options.Workers at a time, and batches
// run one after another. Cancellation is observed between items (Serial) or
// between batches: in-flight work finishes, items not yet started fail with
// KindCancelled. Panics inside fn are captured as failures of the panicking
// item.
func Run[I, O any](
	ctx context.Context,
	mode Mode,
	items *orderedmap.OrderedMap[string, I],
	opts Options,
	fn Func[I, O],
) (*orderedmap.OrderedMap[string, O], map[string]*doc.ProcessingError) {
	successes := orderedmap.New[string, O]()
	failures := map[string]*doc.ProcessingError{}
	if items == nil || items.Len() == 0 {
		return successes, failures
	}
	opts = opts.normalized()

	keys := make([]string, 0, items.Len())
	inputs := make([]I, 0, items.Len())
	for pair := items.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
		inputs = append(inputs, pair.Value)
	}

	outs := make([]O, len(keys))
	errs := make([]*doc.ProcessingError, len(keys))

	switch mode {
	case Serial:
		for i := range keys {
			if ctx.Err() != nil {
				markCancelled(ctx, keys[i:], errs[i:])
				break
			}
			outs[i], errs[i] = runOne(ctx, keys[i], inputs[i], fn)
		}
	default:
		for start := 0; start < len(keys); start += opts.BatchSize {
			if ctx.Err() != nil {
				markCancelled(ctx, keys[start:], errs[start:])
				break
			}
			end := min(start+opts.BatchSize, len(keys))
			runConcurrent(ctx, keys[start:end], inputs[start:end], outs[start:end], errs[start:end], opts.Workers, fn)
		}
	}

	for i, key := range keys {
		if errs[i] != nil {
			failures[key] = errs[i]
			continue
		}
		successes.Set(key, outs[i])
	}
	return successes, failures
}

// runConcurrent processes one batch slice with a bounded worker pool, writing
// results by index so no locking is needed.
func runConcurrent[I, O any](
	ctx context.Context,
	keys []string,
	inputs []I,
	outs []O,
	errs []*doc.ProcessingError,
	workers int,
	fn Func[I, O],
) {
	sem := make(chan struct{}, workers)
	done := make(chan int, len(keys))
	for i := range keys {
		go func() {
			sem <- struct{}{}
			defer func() {
				<-sem
				done <- i
			}()
			outs[i], errs[i] = runOne(ctx, keys[i], inputs[i], fn)
		}()
	}
	for range keys {
		<-done
	}
}

// runOne invokes fn for a single item, converting errors and panics into
// ProcessingErrors keyed by the item.
func runOne[I, O any](ctx context.Context, key string, item I, fn Func[I, O]) (out O, perr *doc.ProcessingError) {
	defer func() {
		if r := recover(); r != nil {
			perr = doc.Errorf(doc.KindParse, "", "panic: %v", r)
			perr.File = key
		}
	}()
	out, err := fn(ctx, key, item)
	if err != nil {
		return out, doc.Promote(err, "", key)
	}
	return out, nil
}

// markCancelled fails every remaining key without running it. Work abandoned
// because the batch context ended is KindCancelled regardless of whether the
// context was cancelled or timed out.
func markCancelled(ctx context.Context, keys []string, errs []*doc.ProcessingError) {
	for i, key := range keys {
		pe := doc.NewProcessingError(doc.KindCancelled, "", context.Cause(ctx))
		pe.File = key
		errs[i] = pe
	}
}
