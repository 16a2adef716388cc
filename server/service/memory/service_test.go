package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/server/ai"
	"github.com/memora/memora/store"
	"github.com/memora/memora/store/db/localfile"
)

// stubEmbedder returns programmed vectors for known texts and falls back to
// the deterministic mock for everything else.
type stubEmbedder struct {
	vectors map[string][]float32
	mock    *ai.MockEmbedder
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: make(map[string][]float32),
		mock:    ai.NewMockEmbedder(),
	}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.mock.Embed(ctx, text)
}

func (e *stubEmbedder) Dimensions() int { return store.TextVectorSize }

// axisVector is a unit vector along one dimension, convenient for exact
// cosine control in tests.
func axisVector(i int) []float32 {
	v := make([]float32, store.TextVectorSize)
	v[i] = 1
	return v
}

func newTestService(t *testing.T, embedder ai.EmbeddingService) *Service {
	t.Helper()
	primary, err := localfile.NewDB(&profile.Profile{Data: t.TempDir()})
	require.NoError(t, err)
	fallback, err := localfile.NewDB(&profile.Profile{Data: t.TempDir()})
	require.NoError(t, err)
	return NewService(store.New(primary, fallback, store.DefaultCollectionSchema()), embedder)
}

func TestCreateMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyContentRejectedWithoutWrite", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "   "})
		require.Error(t, err)
		assert.True(t, storeerrors.IsCode(err, storeerrors.ErrCodeInvalidArgument))

		memories, err := svc.SearchMemories(ctx, &SearchRequest{})
		require.NoError(t, err)
		assert.Empty(t, memories)
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "hello", Type: "diary"})
		require.Error(t, err)
		assert.True(t, storeerrors.IsCode(err, storeerrors.ErrCodeInvalidArgument))
	})

	t.Run("DefaultsTypeAndAppendsSafetyTags", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		memory, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "I fell in the kitchen"})
		require.NoError(t, err)
		assert.Equal(t, store.MemoryTypeConversation, memory.Type)
		assert.Equal(t, []string{"emergency", "caregiver", "alert"}, memory.Tags)
		assert.NotEmpty(t, memory.ID)
		assert.NotZero(t, memory.Timestamp)
		assert.NotEmpty(t, memory.Date)
		assert.Len(t, memory.TextVector, store.TextVectorSize)
	})

	t.Run("CallerTagsPreserved", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		memory, err := svc.CreateMemory(ctx, &CreateMemoryRequest{
			Content: "took my blood pressure medication",
			Tags:    []string{"health"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"health"}, memory.Tags)
	})
}

func TestCreateVoiceMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("TranscriptStoredAsAudio", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		memory, err := svc.CreateVoiceMemory(ctx, "remember to water the plants")
		require.NoError(t, err)
		assert.Equal(t, store.MemoryTypeAudio, memory.Type)
		assert.Contains(t, memory.Tags, voiceMemoTag)
		assert.Equal(t, "remember to water the plants", memory.Content)
	})

	t.Run("EmptyTranscriptFails", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		_, err := svc.CreateVoiceMemory(ctx, "  ")
		require.Error(t, err)
		assert.True(t, storeerrors.IsCode(err, storeerrors.ErrCodeTranscriptionFailed))
	})
}

func TestSearchMemories(t *testing.T) {
	ctx := context.Background()

	t.Run("NoQueryListsMostRecentWithDefaultLimit", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		contents := []string{"zebra one", "zebra two", "zebra three", "zebra four", "zebra five"}
		for _, c := range contents {
			_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: c})
			require.NoError(t, err)
		}
		memories, err := svc.SearchMemories(ctx, &SearchRequest{})
		require.NoError(t, err)
		assert.Len(t, memories, defaultRecentLimit)
	})

	t.Run("ListLimitIsCapped", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "only one"})
		require.NoError(t, err)
		memories, err := svc.SearchMemories(ctx, &SearchRequest{Limit: 10_000})
		require.NoError(t, err)
		assert.Len(t, memories, 1)
	})

	t.Run("CaregiverSeesOnlySafetyRelevantRecords", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		seed := []*CreateMemoryRequest{
			{Content: "medication schedule for the week", Type: store.MemoryTypeCaregiver},
			{Content: "I fell near the stairs"},
			{Content: "blood pressure reading 120/80", Tags: []string{"health"}},
			{Content: "walked in the park with friends"},
		}
		for _, req := range seed {
			_, err := svc.CreateMemory(ctx, req)
			require.NoError(t, err)
		}

		caregiverView, err := svc.SearchMemories(ctx, &SearchRequest{Role: RoleCaregiver, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, caregiverView, 3)
		for _, memory := range caregiverView {
			assert.NotEqual(t, "walked in the park with friends", memory.Content)
		}

		patientView, err := svc.SearchMemories(ctx, &SearchRequest{Role: RolePatient, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, patientView, 4)
	})

	t.Run("CaregiverVisibilityAppliesToSearchResults", func(t *testing.T) {
		svc := newTestService(t, ai.NewMockEmbedder())
		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "grocery list with milk"})
		require.NoError(t, err)
		_, err = svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "milk thistle for health", Tags: []string{"health"}})
		require.NoError(t, err)

		results, err := svc.SearchMemories(ctx, &SearchRequest{Query: "milk", Role: RoleCaregiver})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "milk thistle for health", results[0].Content)
	})

	t.Run("KeywordMatchBeatsSemanticMatch", func(t *testing.T) {
		embedder := newStubEmbedder()
		embedder.vectors["Alex visited last week"] = axisVector(0)
		embedder.vectors["my grandson came by"] = axisVector(1)
		embedder.vectors["alex"] = axisVector(1)
		svc := newTestService(t, embedder)

		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "Alex visited last week"})
		require.NoError(t, err)
		_, err = svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "my grandson came by"})
		require.NoError(t, err)

		results, err := svc.SearchMemories(ctx, &SearchRequest{Query: "alex"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Alex visited last week", results[0].Content)
	})

	t.Run("SemanticFallbackWhenNoKeywordMatch", func(t *testing.T) {
		embedder := newStubEmbedder()
		embedder.vectors["We watched birds by the lake"] = axisVector(2)
		embedder.vectors["waterfowl observation"] = axisVector(2)
		svc := newTestService(t, embedder)

		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "We watched birds by the lake"})
		require.NoError(t, err)

		results, err := svc.SearchMemories(ctx, &SearchRequest{Query: "waterfowl observation"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "We watched birds by the lake", results[0].Content)
	})

	t.Run("NoMatchesReturnsEmptyNotError", func(t *testing.T) {
		embedder := newStubEmbedder()
		embedder.vectors["quiet afternoon tea"] = axisVector(3)
		embedder.vectors["spaceship launch schedule"] = axisVector(4)
		svc := newTestService(t, embedder)

		_, err := svc.CreateMemory(ctx, &CreateMemoryRequest{Content: "quiet afternoon tea"})
		require.NoError(t, err)

		results, err := svc.SearchMemories(ctx, &SearchRequest{Query: "spaceship launch schedule"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
