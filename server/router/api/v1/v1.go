// Package v1 exposes the memory store over a JSON HTTP API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/server/ai"
	"github.com/memora/memora/server/service/memory"
	"github.com/memora/memora/store"
)

type APIV1Service struct {
	Profile       *profile.Profile
	Store         *store.Store
	MemoryService *memory.Service
	VisionService ai.VisionService
}

func NewAPIV1Service(p *profile.Profile, st *store.Store, memoryService *memory.Service, visionService ai.VisionService) *APIV1Service {
	return &APIV1Service{
		Profile:       p,
		Store:         st,
		MemoryService: memoryService,
		VisionService: visionService,
	}
}

// RegisterRoutes mounts all v1 endpoints on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiV1 := echoServer.Group("/api/v1")
	apiV1.GET("/memories", s.ListMemories)
	apiV1.POST("/memories", s.CreateMemory)
	apiV1.POST("/memories/voice", s.CreateVoiceMemory)
	apiV1.POST("/vision/analyze", s.AnalyzeImage)
}

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorJSON maps a service error to its HTTP status and writes the uniform
// error body.
func errorJSON(c echo.Context, err error) error {
	code := storeerrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case storeerrors.ErrCodeInvalidArgument, storeerrors.ErrCodeTranscriptionFailed:
		status = http.StatusBadRequest
	case storeerrors.ErrCodeBackendUnavailable:
		status = http.StatusServiceUnavailable
	case storeerrors.ErrCodeEmbeddingFailed, storeerrors.ErrCodeAnalysisFailed, storeerrors.ErrCodeBackendOperationFailed:
		status = http.StatusBadGateway
	}
	return c.JSON(status, ErrorResponse{Code: string(code), Message: err.Error()})
}
