package store

import "strings"

// MemoryType is the closed set of memory categories.
type MemoryType string

const (
	MemoryTypeConversation MemoryType = "conversation"
	MemoryTypeImage        MemoryType = "image"
	MemoryTypeAudio        MemoryType = "audio"
	MemoryTypeCaregiver    MemoryType = "caregiver"
	MemoryTypeThought      MemoryType = "thought"
)

// IsValid reports whether t is one of the known memory types.
func (t MemoryType) IsValid() bool {
	switch t {
	case MemoryTypeConversation, MemoryTypeImage, MemoryTypeAudio, MemoryTypeCaregiver, MemoryTypeThought:
		return true
	}
	return false
}

const (
	// CollectionName is the logical container for all memory records.
	CollectionName = "memora_moments"

	// TextVectorSize is the dimensionality of the text embedding slot
	// (all-MiniLM-L6-v2).
	TextVectorSize = 384
	// ImageVectorSize is the dimensionality of the image embedding slot
	// (CLIP ViT-B/32).
	ImageVectorSize = 512
)

// Memory is the unit of storage: one remembered moment.
// Records are created once and never updated or deleted afterward.
type Memory struct {
	ID           string     `json:"id"`
	Type         MemoryType `json:"type"`
	Content      string     `json:"content"`
	Timestamp    int64      `json:"timestamp"` // milliseconds since epoch
	Date         string     `json:"date"`      // human-readable rendering of Timestamp
	Tags         []string   `json:"tags"`
	ImageDetails string     `json:"imageDetails,omitempty"`
	TextVector   []float32  `json:"vector,omitempty"`
}

// HasTag reports whether the memory carries the given tag.
func (m *Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FieldPredicate names a payload field and a value to match against.
// Scalar fields match by equality; the tags field matches by membership.
type FieldPredicate struct {
	Field string
	Value string
}

// FindMemory is the find condition for memory scans.
// AnyOf has OR semantics: a record passes if it matches at least one
// predicate. An empty predicate set passes every record.
type FindMemory struct {
	AnyOf []FieldPredicate
	Limit int
}

// MatchesAnyOf reports whether the memory satisfies the filter's predicate
// set. Matching is exact equality for scalar fields and set membership for
// the tags field; unknown fields never match.
func (m *Memory) MatchesAnyOf(preds []FieldPredicate) bool {
	if len(preds) == 0 {
		return true
	}
	for _, p := range preds {
		switch strings.ToLower(p.Field) {
		case "type":
			if string(m.Type) == p.Value {
				return true
			}
		case "tags":
			if m.HasTag(p.Value) {
				return true
			}
		case "id":
			if m.ID == p.Value {
				return true
			}
		}
	}
	return false
}

// MemoryWithScore represents a vector search result with similarity score.
type MemoryWithScore struct {
	Memory *Memory
	Score  float64
}

// VectorSearchOptions represents the options for vector search.
type VectorSearchOptions struct {
	Vector []float32 // query vector (text slot)
	Limit  int       // number of results to return
}

// VectorSlot describes one named vector slot of the collection schema.
type VectorSlot struct {
	Name string
	Size uint64
}

// CollectionSchema is the fixed vector schema of the memory collection.
// Distance metric is cosine for every slot.
type CollectionSchema struct {
	Name  string
	Slots []VectorSlot
}

// DefaultCollectionSchema returns the schema every tier is bootstrapped with:
// a 384-d "text" slot and a 512-d "image" slot.
func DefaultCollectionSchema() *CollectionSchema {
	return &CollectionSchema{
		Name: CollectionName,
		Slots: []VectorSlot{
			{Name: "text", Size: TextVectorSize},
			{Name: "image", Size: ImageVectorSize},
		},
	}
}
