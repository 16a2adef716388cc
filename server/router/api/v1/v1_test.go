package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/server/ai"
	"github.com/memora/memora/server/service/memory"
	"github.com/memora/memora/store"
	"github.com/memora/memora/store/db/localfile"
)

func newTestAPI(t *testing.T) (*APIV1Service, *echo.Echo) {
	t.Helper()
	p := &profile.Profile{Mode: "demo", Data: t.TempDir()}
	primary, err := localfile.NewDB(&profile.Profile{Data: t.TempDir()})
	require.NoError(t, err)
	fallback, err := localfile.NewDB(&profile.Profile{Data: t.TempDir()})
	require.NoError(t, err)
	st := store.New(primary, fallback, store.DefaultCollectionSchema())
	memoryService := memory.NewService(st, ai.NewMockEmbedder())
	service := NewAPIV1Service(p, st, memoryService, ai.NewHintAnalyzer())

	echoServer := echo.New()
	service.RegisterRoutes(echoServer)
	return service, echoServer
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateMemoryEndpoint(t *testing.T) {
	t.Run("CreatesAndAutoTags", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/memories", `{"content":"I fell in the garden"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp MemoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "conversation", resp.Type)
		assert.Equal(t, []string{"emergency", "caregiver", "alert"}, resp.Tags)
	})

	t.Run("EmptyContentIsBadRequest", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/memories", `{"content":""}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_ARGUMENT", resp.Code)
	})
}

func TestListMemoriesEndpoint(t *testing.T) {
	t.Run("SearchFindsKeywordMatch", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/memories", `{"content":"Alex visited last week"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(e, http.MethodGet, "/api/v1/memories?q=alex", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListMemoriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Memories, 1)
		assert.Equal(t, "Alex visited last week", resp.Memories[0].Content)
	})

	t.Run("InvalidLimitIsBadRequest", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodGet, "/api/v1/memories?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("CaregiverRoleFiltersResults", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/memories", `{"content":"walked in the park"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = doJSON(e, http.MethodPost, "/api/v1/memories", `{"content":"I fell near the stairs"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(e, http.MethodGet, "/api/v1/memories?role=caregiver&limit=10", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListMemoriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Memories, 1)
		assert.Equal(t, "I fell near the stairs", resp.Memories[0].Content)
	})
}

func TestCreateVoiceMemoryEndpoint(t *testing.T) {
	t.Run("StoresTranscriptAsAudio", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/memories/voice", `{"transcript":"water the plants"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp MemoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "audio", resp.Type)
		assert.Contains(t, resp.Tags, "voice-memo")
	})

	t.Run("EmptyTranscriptIsBadRequest", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/memories/voice", `{"transcript":""}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "TRANSCRIPTION_FAILED", resp.Code)
	})
}

func TestAnalyzeImageEndpoint(t *testing.T) {
	t.Run("AnswersHint", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/vision/analyze", `{"image":"aGVsbG8=","prompt":"who is this person"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AnalyzeImageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Description, "Alex")
	})

	t.Run("MissingImageIsBadRequest", func(t *testing.T) {
		_, e := newTestAPI(t)
		rec := doJSON(e, http.MethodPost, "/api/v1/vision/analyze", `{"prompt":"keys"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
