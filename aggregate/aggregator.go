package aggregate

import (
	"context"
	"fmt"

	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// Phase is the lifecycle state of one aggregator instance.
type Phase int

const (
	// Collecting accepts per-segment leaf collection.
	Collecting Phase = iota
	// PostCollecting runs index-wide replay work after all collection.
	PostCollecting
	// Built allows materializing per-bucket results.
	Built
	// Closed means all owned resources have been released.
	Closed
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case PostCollecting:
		return "post-collecting"
	case Built:
		return "built"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Aggregator accumulates per-bucket state during one collection pass and
// materializes immutable results afterwards.
type Aggregator interface {
	Name() string

	// NeedsScores declares whether relevance scores must be computed for
	// a segment before collection.
	NeedsScores() bool

	// Leaf returns the collector for one segment, or the NoOp collector
	// when the source field is unmapped.
	Leaf(r segment.Reader) (LeafCollector, error)

	// PostCollect runs after collection for the entire index has
	// finished. Join-style aggregators replay child documents here;
	// everything else just advances its phase.
	PostCollect(ctx context.Context, idx segment.Index) error

	// Build materializes the immutable result for one bucket ordinal.
	Build(ord model.BucketOrd) (Internal, error)

	// BuildEmpty fabricates a structurally valid result for the case
	// where no values were ever collected.
	BuildEmpty() Internal

	// Close releases all owned resources exactly once. It must run even
	// if collection failed mid-pass.
	Close() error
}

// Base carries the name, score requirement, and phase of an aggregator.
// Embed it and drive the transitions from PostCollect/Build/Close.
type Base struct {
	name        string
	needsScores bool
	phase       Phase
}

// NewBase creates a Base in the Collecting phase.
func NewBase(name string, needsScores bool) Base {
	return Base{name: name, needsScores: needsScores}
}

// Name returns the aggregation name.
func (b *Base) Name() string { return b.name }

// NeedsScores implements Aggregator.
func (b *Base) NeedsScores() bool { return b.needsScores }

// Phase returns the current lifecycle phase.
func (b *Base) Phase() Phase { return b.phase }

// RequireCollecting guards leaf creation.
func (b *Base) RequireCollecting() error {
	if b.phase != Collecting {
		return fmt.Errorf("aggregation [%s]: leaf collection requested in %s phase", b.name, b.phase)
	}
	return nil
}

// StartPostCollect transitions Collecting -> PostCollecting.
func (b *Base) StartPostCollect() error {
	if b.phase != Collecting {
		return fmt.Errorf("aggregation [%s]: post-collection started in %s phase", b.name, b.phase)
	}
	b.phase = PostCollecting
	return nil
}

// StartBuild transitions PostCollecting -> Built. Once Built, further
// calls are no-ops so results can be built bucket by bucket.
func (b *Base) StartBuild() error {
	switch b.phase {
	case PostCollecting:
		b.phase = Built
		return nil
	case Built:
		return nil
	default:
		return fmt.Errorf("aggregation [%s]: build requested in %s phase", b.name, b.phase)
	}
}

// MarkClosed transitions to Closed. Closing twice is a defect.
func (b *Base) MarkClosed() error {
	if b.phase == Closed {
		return fmt.Errorf("aggregation [%s]: closed twice", b.name)
	}
	b.phase = Closed
	return nil
}
