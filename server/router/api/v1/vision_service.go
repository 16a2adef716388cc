package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	storeerrors "github.com/memora/memora/internal/errors"
)

// AnalyzeImageRequest carries a base64-encoded image and an optional caller
// hint about what to look for.
type AnalyzeImageRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// AnalyzeImageResponse is the analyzer's natural-language answer.
type AnalyzeImageResponse struct {
	Description string `json:"description"`
}

// AnalyzeImage runs the vision analyzer over an uploaded image.
// POST /api/v1/vision/analyze
func (s *APIV1Service) AnalyzeImage(c echo.Context) error {
	var req AnalyzeImageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, storeerrors.InvalidArgument("malformed request body"))
	}

	description, err := s.VisionService.Analyze(c.Request().Context(), req.Image, req.Prompt)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, AnalyzeImageResponse{Description: description})
}
