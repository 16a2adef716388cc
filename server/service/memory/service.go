// Package memory implements the domain logic of the memory store: record
// creation with safety auto-tagging, role-based visibility filtering, and
// hybrid (keyword + semantic) search.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/server/ai"
	"github.com/memora/memora/store"
)

const (
	// defaultRecentLimit is how many records the no-query list path returns.
	defaultRecentLimit = 3
	// maxListLimit caps caller-supplied limits.
	maxListLimit = 50
	// semanticLimit is the top-K for the vector search leg of hybrid search.
	semanticLimit = 5
	// voiceMemoTag marks memories created from a voice transcript.
	voiceMemoTag = "voice-memo"
)

// Roles recognized by the visibility filter. Any other value gets the
// primary user's full visibility.
const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
)

// Service orchestrates memory operations against the two-tier store.
type Service struct {
	store    *store.Store
	embedder ai.EmbeddingService
}

// NewService creates a new memory service.
func NewService(s *store.Store, embedder ai.EmbeddingService) *Service {
	return &Service{
		store:    s,
		embedder: embedder,
	}
}

// CreateMemoryRequest contains the caller-supplied fields of a new memory.
type CreateMemoryRequest struct {
	Content      string
	Type         store.MemoryType
	Tags         []string
	ImageDetails string
}

// CreateMemory validates, embeds, auto-tags, and persists a new record,
// waiting for the write to be acknowledged. Returns the stored record.
func (s *Service) CreateMemory(ctx context.Context, req *CreateMemoryRequest) (*store.Memory, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, storeerrors.InvalidArgument("content is required")
	}

	memoryType := req.Type
	if memoryType == "" {
		memoryType = store.MemoryTypeConversation
	}
	if !memoryType.IsValid() {
		return nil, storeerrors.InvalidArgument("unknown memory type: " + string(memoryType))
	}

	if err := s.store.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	memory := &store.Memory{
		ID:           uuid.NewString(),
		Type:         memoryType,
		Content:      req.Content,
		Timestamp:    now.UnixMilli(),
		Date:         now.Format("Monday, January 2, 2006"),
		Tags:         AppendSafetyTags(req.Content, req.Tags),
		ImageDetails: req.ImageDetails,
		TextVector:   vector,
	}

	if err := s.store.UpsertMemory(ctx, memory); err != nil {
		return nil, err
	}

	slog.Info("memory created",
		"id", memory.ID,
		"type", memory.Type,
		"tags", memory.Tags,
		"store_mode", s.store.Mode().String())
	return memory, nil
}

// CreateVoiceMemory persists a transcript produced by the upstream
// speech-to-text collaborator as an audio memory.
func (s *Service) CreateVoiceMemory(ctx context.Context, transcript string) (*store.Memory, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, storeerrors.TranscriptionFailed("empty transcript")
	}
	return s.CreateMemory(ctx, &CreateMemoryRequest{
		Content: transcript,
		Type:    store.MemoryTypeAudio,
		Tags:    []string{voiceMemoTag},
	})
}

// SearchRequest contains the search/list parameters.
type SearchRequest struct {
	Query string
	Role  string
	Limit int
}

// SearchMemories serves both the list path (no query: most recent records)
// and the hybrid search path. Role-based visibility is a hard boundary:
// caregiver callers only ever see caregiver-typed records or records tagged
// health or emergency.
func (s *Service) SearchMemories(ctx context.Context, req *SearchRequest) ([]*store.Memory, error) {
	if req == nil {
		req = &SearchRequest{}
	}
	requestID := shortuuid.New()

	if err := s.store.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	visibility := visibilityPredicates(req.Role)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return s.listRecent(ctx, visibility, req.Limit)
	}

	memories, matchType, err := s.hybridSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	memories = applyVisibility(memories, visibility)

	slog.Info("memory search served",
		"request_id", requestID,
		"match_type", matchType,
		"role", req.Role,
		"results", len(memories),
		"store_mode", s.store.Mode().String())
	return memories, nil
}

// listRecent returns the most recent records that pass the visibility filter.
func (s *Service) listRecent(ctx context.Context, visibility []store.FieldPredicate, limit int) ([]*store.Memory, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.ScanMemories(ctx, &store.FindMemory{
		AnyOf: visibility,
		Limit: limit,
	})
}

// hybridSearch runs the keyword and semantic legs and applies the priority
// rule: any exact textual match beats the semantic set entirely. Exact
// matches are higher-confidence evidence than approximate embeddings and
// must not be diluted by semantically-similar-but-irrelevant hits.
func (s *Service) hybridSearch(ctx context.Context, query string) ([]*store.Memory, string, error) {
	all, err := s.store.ScanMemories(ctx, nil)
	if err != nil {
		return nil, "", err
	}

	terms := strings.Fields(strings.ToLower(query))
	keywordSet := make([]*store.Memory, 0, len(all))
	for _, memory := range all {
		if matchesAnyTerm(memory.Content, terms) {
			keywordSet = append(keywordSet, memory)
		}
	}
	if len(keywordSet) > 0 {
		return keywordSet, "keyword", nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, "", err
	}
	scored, err := s.store.VectorSearch(ctx, &store.VectorSearchOptions{
		Vector: vector,
		Limit:  semanticLimit,
	})
	if err != nil {
		return nil, "", err
	}

	semanticSet := make([]*store.Memory, 0, len(scored))
	for _, result := range scored {
		semanticSet = append(semanticSet, result.Memory)
	}
	return semanticSet, "semantic", nil
}

// matchesAnyTerm reports whether content contains any of the lowercase
// terms as a substring.
func matchesAnyTerm(content string, terms []string) bool {
	lower := strings.ToLower(content)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// visibilityPredicates returns the visibility boundary for a role, or nil
// for full visibility.
func visibilityPredicates(role string) []store.FieldPredicate {
	if role != RoleCaregiver {
		return nil
	}
	return []store.FieldPredicate{
		{Field: "type", Value: string(store.MemoryTypeCaregiver)},
		{Field: "tags", Value: "health"},
		{Field: "tags", Value: "emergency"},
	}
}

// applyVisibility filters a result set down to the records the role may see.
func applyVisibility(memories []*store.Memory, visibility []store.FieldPredicate) []*store.Memory {
	if len(visibility) == 0 {
		return memories
	}
	filtered := make([]*store.Memory, 0, len(memories))
	for _, memory := range memories {
		if memory.MatchesAnyOf(visibility) {
			filtered = append(filtered, memory)
		}
	}
	return filtered
}
