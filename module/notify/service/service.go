package service

import (
	"FeedNotify/service/storage"

	"go.uber.org/zap"
)

// Service wires the notification core on top of one store.
type Service struct {
	Directory *Directory
	States    *ViewStates
	Ledger    *Ledger
	Buckets   *Buckets
	Digest    *Digest
}

// New validates opts and builds every component. sink may be nil, in which
// case drains clear pending lists without delivering them.
func New(store storage.Store, opts Options, sink Sink, log *zap.Logger) (*Service, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	buckets := NewBuckets(store, opts.Location)
	states := NewViewStates(store, buckets, opts.Periods, opts.Now, log.Named("state"))
	ledger := NewLedger(store, states, opts.Limit, log.Named("ledger"))
	dir := NewDirectory(store, states, ledger, opts.Now, log.Named("directory"))
	digest := NewDigest(dir, states, ledger, buckets, sink, opts.DrainConcurrency, log.Named("digest"))

	return &Service{
		Directory: dir,
		States:    states,
		Ledger:    ledger,
		Buckets:   buckets,
		Digest:    digest,
	}, nil
}
