package store

import "context"

// Driver is the storage backend interface shared by the remote vector tier
// and the local fallback tier. It contains the four operations every tier
// must implement.
//
// Drivers report network-level failures against the remote backend as
// errors.ErrCodeBackendUnavailable so the Store can perform its one-time
// switchover; all other backend rejections carry
// errors.ErrCodeBackendOperationFailed.
type Driver interface {
	// CreateCollection provisions the named collection with its vector
	// schema, including any secondary indexes the tier supports. It must be
	// safe to call repeatedly.
	CreateCollection(ctx context.Context, schema *CollectionSchema) error

	// UpsertMemory writes a record, replacing any existing record with the
	// same ID. The write is acknowledged before the call returns.
	UpsertMemory(ctx context.Context, memory *Memory) error

	// ScanMemories returns records matching the find condition, sorted
	// descending by timestamp and truncated to the find limit.
	ScanMemories(ctx context.Context, find *FindMemory) ([]*Memory, error)

	// VectorSearch returns the records most similar to the query vector,
	// highest score first.
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*MemoryWithScore, error)

	// Close releases resources.
	Close() error
}
