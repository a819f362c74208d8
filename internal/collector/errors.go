package collector

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/go-github/v55/github"

	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
)

// classifyError maps a go-github error onto the application error codes
func classifyError(err error, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &apperrors.AppError{Code: apperrors.ErrCodeRateLimited, Message: "GitHub API rate limit exceeded", Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: "repository not found", Err: err}
		case http.StatusUnauthorized:
			return &apperrors.AppError{Code: apperrors.ErrCodeUnauthorized, Message: "GitHub credential rejected", Err: err}
		case http.StatusForbidden:
			forbidden := apperrors.NewForbiddenError("GitHub denied access to the repository")
			forbidden.Err = err
			return forbidden
		}
	}

	return apperrors.NewUpstreamError(message, err)
}
