package indexer

import (
	"context"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// Pipeline is the read -> parse -> store computation for one item generation.
// It satisfies workqueue.Operation.
type Pipeline struct {
	uri        string
	generation uint64
	done       chan struct{}

	// set before done is closed
	item types.Item
	err  error
}

func newPipeline(uri string, generation uint64) *Pipeline {
	return &Pipeline{
		uri:        uri,
		generation: generation,
		done:       make(chan struct{}),
	}
}

// URI returns the item the pipeline belongs to
func (p *Pipeline) URI() string { return p.uri }

// Generation returns the item generation the pipeline was started for
func (p *Pipeline) Generation() uint64 { return p.generation }

// Done is closed once the pipeline has settled
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Wait blocks until the pipeline settles and returns the item as it stood then.
// A superseded pipeline never commits; its result is the newer state.
func (p *Pipeline) Wait(ctx context.Context) (types.Item, error) {
	select {
	case <-p.done:
		return p.item.Clone(), p.err
	case <-ctx.Done():
		return types.Item{}, ctx.Err()
	}
}
