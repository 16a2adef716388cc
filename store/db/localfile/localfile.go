// Package localfile implements the durable local fallback tier of the memory
// store. It keeps the full record list in memory and persists it as a single
// JSON document on every write, so a process crash never loses acknowledged
// writes. Vector search is a brute-force cosine scan; no schema is enforced.
package localfile

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/internal/vecmath"
	"github.com/memora/memora/store"
)

// minSimilarity is the score cutoff for brute-force vector search. Scores at
// or below it are treated as noise from the small embedding model.
const minSimilarity = 0.45

const fallbackFileName = "memora_fallback.json"

// fileRecord is the on-disk rendering of a memory record. Vectors are kept
// as named slots so the layout stays compatible with the remote tier's
// named-vector schema.
type fileRecord struct {
	ID           string               `json:"id"`
	Type         store.MemoryType     `json:"type"`
	Content      string               `json:"content"`
	Timestamp    int64                `json:"timestamp"`
	Date         string               `json:"date"`
	Tags         []string             `json:"tags"`
	ImageDetails string               `json:"imageDetails,omitempty"`
	Vector       map[string][]float32 `json:"vector"`
}

// fileDocument is the single on-disk document holding the ordered record
// list, most-recently-written first.
type fileDocument struct {
	Memories []*fileRecord `json:"memories"`
}

// DB is the local fallback driver.
type DB struct {
	mu       sync.Mutex
	path     string
	memories []*fileRecord // most-recently-written first
}

// NewDB opens (or creates) the fallback document under the profile's data
// directory and loads it into memory.
func NewDB(p *profile.Profile) (*DB, error) {
	d := &DB{
		path: filepath.Join(p.Data, fallbackFileName),
	}
	if err := d.load(); err != nil {
		return nil, errors.Wrap(err, "failed to load fallback store")
	}
	return d, nil
}

func (d *DB) load() error {
	raw, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		d.memories = []*fileRecord{}
		return nil
	}
	if err != nil {
		return err
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.Wrapf(err, "corrupt fallback document %s", d.path)
	}
	d.memories = doc.Memories
	if d.memories == nil {
		d.memories = []*fileRecord{}
	}
	return nil
}

// flush persists the full record list back to disk. Callers must hold d.mu.
func (d *DB) flush() error {
	raw, err := json.MarshalIndent(&fileDocument{Memories: d.memories}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.path, raw, 0600)
}

// CreateCollection is a no-op success: the fallback tier enforces no schema
// and must not fail even when called repeatedly.
func (d *DB) CreateCollection(_ context.Context, _ *store.CollectionSchema) error {
	return nil
}

// UpsertMemory replaces an existing record with the same ID in place
// (preserving list position) or inserts a new record at the front, then
// persists the whole document synchronously.
//
// A flush failure is surfaced as STORAGE_WRITE_FAILED; the in-memory state
// keeps the write so reads within this process stay consistent.
func (d *DB) UpsertMemory(_ context.Context, memory *store.Memory) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := toFileRecord(memory)
	replaced := false
	for i, existing := range d.memories {
		if existing.ID == rec.ID {
			d.memories[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		d.memories = append([]*fileRecord{rec}, d.memories...)
	}

	if err := d.flush(); err != nil {
		slog.Error("failed to persist fallback store", "path", d.path, "error", err)
		return storeerrors.StorageWriteFailed("failed to persist fallback store", err)
	}
	return nil
}

// ScanMemories returns records matching the find condition, sorted
// descending by timestamp. A find limit of zero or less means no truncation.
func (d *DB) ScanMemories(_ context.Context, find *store.FindMemory) ([]*store.Memory, error) {
	if find == nil {
		find = &store.FindMemory{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	matched := make([]*store.Memory, 0, len(d.memories))
	for _, rec := range d.memories {
		memory := toMemory(rec)
		if memory.MatchesAnyOf(find.AnyOf) {
			matched = append(matched, memory)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	if find.Limit > 0 && len(matched) > find.Limit {
		matched = matched[:find.Limit]
	}
	return matched, nil
}

// VectorSearch computes cosine similarity between the query vector and every
// stored record's text vector, discards low scores, and returns the top
// results, highest score first.
func (d *DB) VectorSearch(_ context.Context, opts *store.VectorSearchOptions) ([]*store.MemoryWithScore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make([]*store.MemoryWithScore, 0, len(d.memories))
	for _, rec := range d.memories {
		score := vecmath.CosineSimilarity(opts.Vector, rec.Vector["text"])
		if score <= minSimilarity {
			continue
		}
		results = append(results, &store.MemoryWithScore{
			Memory: toMemory(rec),
			Score:  score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close is a no-op: every write is already flushed.
func (d *DB) Close() error {
	return nil
}

// Ensure DB implements store.Driver.
var _ store.Driver = (*DB)(nil)

func toFileRecord(m *store.Memory) *fileRecord {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return &fileRecord{
		ID:           m.ID,
		Type:         m.Type,
		Content:      m.Content,
		Timestamp:    m.Timestamp,
		Date:         m.Date,
		Tags:         tags,
		ImageDetails: m.ImageDetails,
		Vector:       map[string][]float32{"text": m.TextVector},
	}
}

func toMemory(rec *fileRecord) *store.Memory {
	return &store.Memory{
		ID:           rec.ID,
		Type:         rec.Type,
		Content:      rec.Content,
		Timestamp:    rec.Timestamp,
		Date:         rec.Date,
		Tags:         rec.Tags,
		ImageDetails: rec.ImageDetails,
		TextVector:   rec.Vector["text"],
	}
}
