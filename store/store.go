package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	storeerrors "github.com/memora/memora/internal/errors"
)

// Mode identifies which storage tier the store is routing to.
type Mode int32

const (
	// ModePrimary routes operations to the remote vector backend.
	ModePrimary Mode = iota
	// ModeFallback routes operations to the local durable store. The
	// transition is one-way for the life of the process.
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "primary"
}

// Store provides access to memory records behind a single interface,
// transparently switching from the remote vector backend to the local
// fallback tier the first time the remote backend is unreachable.
//
// The mode flag is process-wide shared state with a single-writer-wins
// transition rule: concurrent requests may race to flip it, the flip is
// idempotent, and there is no automatic recovery back to primary. An
// operator restarts the process to retry the remote backend.
type Store struct {
	primary  Driver
	fallback Driver
	schema   *CollectionSchema

	mode atomic.Int32

	// Collection bootstrap latch: at most one successful CreateCollection
	// per process. A failed bootstrap leaves the latch unset so a later
	// call may retry.
	bootstrapMu  sync.Mutex
	bootstrapped bool
}

// New creates a new Store routing to primary first, falling back to fallback.
func New(primary Driver, fallback Driver, schema *CollectionSchema) *Store {
	if schema == nil {
		schema = DefaultCollectionSchema()
	}
	return &Store{
		primary:  primary,
		fallback: fallback,
		schema:   schema,
	}
}

// Mode returns the current routing mode.
func (s *Store) Mode() Mode {
	return Mode(s.mode.Load())
}

// enterFallback flips the store into fallback mode. Duplicate flips from
// racing requests are tolerated; only the first one logs the transition.
func (s *Store) enterFallback(cause error) {
	if s.mode.CompareAndSwap(int32(ModePrimary), int32(ModeFallback)) {
		slog.Warn("remote vector backend unreachable, switching to local fallback store",
			"error", cause)
	}
}

// failedOver reports whether err is the distinguished connection failure
// that triggers the one-time switchover. When it is, the store flips to
// fallback mode and the caller re-issues the same call against the
// fallback tier.
func (s *Store) failedOver(err error) bool {
	if err == nil {
		return false
	}
	if !storeerrors.IsCode(err, storeerrors.ErrCodeBackendUnavailable) {
		return false
	}
	s.enterFallback(err)
	return true
}

// EnsureCollection bootstraps the memory collection idempotently. It runs at
// most once successfully per process, regardless of how many callers invoke
// it concurrently or sequentially.
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.bootstrapMu.Lock()
	defer s.bootstrapMu.Unlock()
	if s.bootstrapped {
		return nil
	}

	if err := s.CreateCollection(ctx, s.schema); err != nil {
		return err
	}
	s.bootstrapped = true
	return nil
}

// CreateCollection provisions the collection on the active tier.
func (s *Store) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	if s.Mode() == ModeFallback {
		return s.fallback.CreateCollection(ctx, schema)
	}
	err := s.primary.CreateCollection(ctx, schema)
	if s.failedOver(err) {
		return s.fallback.CreateCollection(ctx, schema)
	}
	return err
}

// UpsertMemory writes a record through the active tier.
func (s *Store) UpsertMemory(ctx context.Context, memory *Memory) error {
	if s.Mode() == ModeFallback {
		return s.fallback.UpsertMemory(ctx, memory)
	}
	err := s.primary.UpsertMemory(ctx, memory)
	if s.failedOver(err) {
		return s.fallback.UpsertMemory(ctx, memory)
	}
	return err
}

// ScanMemories lists records through the active tier.
func (s *Store) ScanMemories(ctx context.Context, find *FindMemory) ([]*Memory, error) {
	if s.Mode() == ModeFallback {
		return s.fallback.ScanMemories(ctx, find)
	}
	memories, err := s.primary.ScanMemories(ctx, find)
	if s.failedOver(err) {
		return s.fallback.ScanMemories(ctx, find)
	}
	return memories, err
}

// VectorSearch searches by vector similarity through the active tier.
func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*MemoryWithScore, error) {
	if s.Mode() == ModeFallback {
		return s.fallback.VectorSearch(ctx, opts)
	}
	results, err := s.primary.VectorSearch(ctx, opts)
	if s.failedOver(err) {
		return s.fallback.VectorSearch(ctx, opts)
	}
	return results, err
}

// Close releases both tiers.
func (s *Store) Close() error {
	perr := s.primary.Close()
	ferr := s.fallback.Close()
	if perr != nil {
		return perr
	}
	return ferr
}
