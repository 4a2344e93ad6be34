package aggo

import (
	"context"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/blobstore"
	"github.com/hupe1980/aggo/resource"
	"github.com/hupe1980/aggo/transport"
)

// Archiver persists built result trees to a blob store through the
// transport envelope. Writes and reads honor the controller's IO
// throughput limit when one is configured.
type Archiver struct {
	store      blobstore.Store
	controller *resource.Controller
	logger     *Logger
	encodeOpts []transport.Option
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithTransportOptions sets the envelope codec and compression used
// for archived trees.
func WithTransportOptions(opts ...transport.Option) ArchiverOption {
	return func(a *Archiver) {
		a.encodeOpts = opts
	}
}

// WithArchiveController throttles archive IO through the controller.
func WithArchiveController(c *resource.Controller) ArchiverOption {
	return func(a *Archiver) {
		a.controller = c
	}
}

// WithArchiveLogger configures structured logging for archive writes.
func WithArchiveLogger(logger *Logger) ArchiverOption {
	return func(a *Archiver) {
		if logger == nil {
			logger = NoopLogger()
		}
		a.logger = logger
	}
}

// NewArchiver creates an Archiver over the given store.
func NewArchiver(store blobstore.Store, optFns ...ArchiverOption) *Archiver {
	a := &Archiver{
		store:  store,
		logger: NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(a)
		}
	}
	return a
}

// Archive encodes aggs and writes the envelope under name. The write
// occupies one of the controller's background-worker slots for its
// duration so archiving cannot crowd out foreground work.
func (a *Archiver) Archive(ctx context.Context, name string, aggs aggregate.Internals) error {
	if err := a.controller.AcquireBackground(ctx); err != nil {
		return err
	}
	defer a.controller.ReleaseBackground()

	data, err := transport.Encode(aggs, a.encodeOpts...)
	if err != nil {
		a.logger.LogArchive(ctx, name, 0, err)
		return err
	}
	if err := a.controller.AcquireIO(ctx, len(data)); err != nil {
		return err
	}

	err = a.store.Put(ctx, name, data)
	a.logger.LogArchive(ctx, name, len(data), err)
	return err
}

// Load reads the envelope under name and decodes the result tree.
func (a *Archiver) Load(ctx context.Context, name string) (aggregate.Internals, error) {
	if err := a.controller.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer a.controller.ReleaseBackground()

	data, err := a.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := a.controller.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return transport.Decode(data)
}
