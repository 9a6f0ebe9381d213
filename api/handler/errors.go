package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/webkeep/models"
)

// asArchiveError returns err as an *ArchiveError, wrapping foreign errors
// as INTERNAL_ERROR.
func asArchiveError(err error) *models.ArchiveError {
	var ae *models.ArchiveError
	if errors.As(err, &ae) {
		return ae
	}
	return models.NewArchiveError(models.ErrCodeInternal, err.Error(), err)
}

// respondError writes a structured JSON error with the status mapped from
// the error code.
func respondError(c *gin.Context, err error, resp *models.ArchiveResponse) {
	ae := asArchiveError(err)
	resp.Success = false
	resp.Error = ae.ToDetail()
	c.JSON(mapErrorToStatus(ae.Code), resp)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeFetchFailed, models.ErrCodeDecodeFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
