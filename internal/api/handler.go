package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-skill-analytics/internal/analysis"
	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
)

// AnalysisService is the part of analysis.Service the API exposes
type AnalysisService interface {
	Analyze(ctx context.Context, userID, repoFullName string) (*analysis.AnalyzeResult, error)
	Reanalyze(ctx context.Context, userID, repoFullName string) (*analysis.AnalyzeResult, error)
	EvaluateSkills(ctx context.Context, userID, projectID string) (*analysis.EvaluateResult, error)
	ListRepositories(ctx context.Context, userID string, q analysis.ListQuery) (*analysis.Page[*domain.RepoSummary], error)
	ListProjects(ctx context.Context, userID string, q analysis.ListQuery) (*analysis.Page[*domain.RepositoryAnalytics], error)
	GetProject(ctx context.Context, userID, projectID string) (*domain.RepositoryAnalytics, error)
	ListAssessments(ctx context.Context, userID string, q analysis.ListQuery) (*analysis.Page[*domain.SkillAssessment], error)
}

// Handler handles API requests
type Handler struct {
	service AnalysisService
}

// NewHandler creates a new API handler
func NewHandler(service AnalysisService) *Handler {
	return &Handler{
		service: service,
	}
}

type analyzeRequest struct {
	RepoFullName string `json:"repoFullName" binding:"required"`
}

type skillsRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
}

// AnalyzeRepository analyzes a repository unless it was analyzed before
// POST /api/v1/github/analyze
func (h *Handler) AnalyzeRepository(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("repoFullName is required"))
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), currentUser(c), req.RepoFullName)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.AlreadyAnalyzed {
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"projectId":       result.ProjectID,
				"alreadyAnalyzed": true,
				"message":         "Repository already analyzed",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": result,
	})
}

// RefreshRepository re-analyzes a repository, replacing the stored snapshot
// POST /api/v1/github/analyze/refresh
func (h *Handler) RefreshRepository(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("repoFullName is required"))
		return
	}

	result, err := h.service.Reanalyze(c.Request.Context(), currentUser(c), req.RepoFullName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// ListRepositories returns the user's GitHub repositories
// GET /api/v1/github/repos
func (h *Handler) ListRepositories(c *gin.Context) {
	page, err := h.service.ListRepositories(c.Request.Context(), currentUser(c), parseListQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": page,
	})
}

// EvaluateSkills returns the skill assessment of a project
// POST /api/v1/github/skills
func (h *Handler) EvaluateSkills(c *gin.Context) {
	var req skillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("projectId is required"))
		return
	}

	result, err := h.service.EvaluateSkills(c.Request.Context(), currentUser(c), req.ProjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// ListSkills returns the user's skill assessments
// GET /api/v1/github/skills/all
func (h *Handler) ListSkills(c *gin.Context) {
	page, err := h.service.ListAssessments(c.Request.Context(), currentUser(c), parseListQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": page,
	})
}

// ListProjects returns the user's analyzed repositories
// GET /api/v1/github/projects
func (h *Handler) ListProjects(c *gin.Context) {
	page, err := h.service.ListProjects(c.Request.Context(), currentUser(c), parseListQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": page,
	})
}

// GetProject returns one analyzed repository
// GET /api/v1/github/projects/:projectId
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.service.GetProject(c.Request.Context(), currentUser(c), c.Param("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": project,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func parseListQuery(c *gin.Context) analysis.ListQuery {
	return analysis.ListQuery{
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 10),
		Search: c.Query("search"),
	}
}

// statusFor maps an error code to an HTTP status
func statusFor(code apperrors.ErrCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodePreconditionFailed:
		return http.StatusPreconditionFailed
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(statusFor(appErr.Code), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": "internal server error",
		},
	})
}
