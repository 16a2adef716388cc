package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/server/service/memory"
	"github.com/memora/memora/store"
)

// MemoryResponse is the wire form of a stored memory. Embedding vectors are
// internal and never leave the API.
type MemoryResponse struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	Timestamp    int64    `json:"timestamp"`
	Date         string   `json:"date"`
	Tags         []string `json:"tags"`
	ImageDetails string   `json:"imageDetails,omitempty"`
}

func convertMemory(m *store.Memory) *MemoryResponse {
	return &MemoryResponse{
		ID:           m.ID,
		Type:         string(m.Type),
		Content:      m.Content,
		Timestamp:    m.Timestamp,
		Date:         m.Date,
		Tags:         m.Tags,
		ImageDetails: m.ImageDetails,
	}
}

func convertMemoryList(memories []*store.Memory) []*MemoryResponse {
	responses := make([]*MemoryResponse, 0, len(memories))
	for _, m := range memories {
		responses = append(responses, convertMemory(m))
	}
	return responses
}

// ListMemoriesResponse is the body of the list/search endpoint.
type ListMemoriesResponse struct {
	Memories []*MemoryResponse `json:"memories"`
}

// ListMemories serves both listing and search.
// GET /api/v1/memories?q=...&role=...&limit=...
func (s *APIV1Service) ListMemories(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return errorJSON(c, storeerrors.InvalidArgument("limit must be a non-negative integer"))
		}
		limit = parsed
	}

	memories, err := s.MemoryService.SearchMemories(c.Request().Context(), &memory.SearchRequest{
		Query: c.QueryParam("q"),
		Role:  c.QueryParam("role"),
		Limit: limit,
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, ListMemoriesResponse{Memories: convertMemoryList(memories)})
}

// CreateMemoryRequest is the body of the create endpoint.
type CreateMemoryRequest struct {
	Content      string   `json:"content"`
	Type         string   `json:"type"`
	Tags         []string `json:"tags"`
	ImageDetails string   `json:"imageDetails"`
}

// CreateMemory persists a new memory.
// POST /api/v1/memories
func (s *APIV1Service) CreateMemory(c echo.Context) error {
	var req CreateMemoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, storeerrors.InvalidArgument("malformed request body"))
	}

	created, err := s.MemoryService.CreateMemory(c.Request().Context(), &memory.CreateMemoryRequest{
		Content:      req.Content,
		Type:         store.MemoryType(req.Type),
		Tags:         req.Tags,
		ImageDetails: req.ImageDetails,
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, convertMemory(created))
}

// CreateVoiceMemoryRequest carries a transcript produced upstream.
type CreateVoiceMemoryRequest struct {
	Transcript string `json:"transcript"`
}

// CreateVoiceMemory persists a voice transcript as an audio memory.
// POST /api/v1/memories/voice
func (s *APIV1Service) CreateVoiceMemory(c echo.Context) error {
	var req CreateVoiceMemoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, storeerrors.InvalidArgument("malformed request body"))
	}

	created, err := s.MemoryService.CreateVoiceMemory(c.Request().Context(), req.Transcript)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, convertMemory(created))
}
