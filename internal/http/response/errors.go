package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
)

// RespondFromError maps the service-layer sentinel taxonomy onto HTTP.
func RespondFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerr.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, pkgerr.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, pkgerr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerr.ErrUpstream):
		RespondError(c, http.StatusBadGateway, "upstream_failure", err)
	case errors.Is(err, pkgerr.ErrPersistence):
		RespondError(c, http.StatusInternalServerError, "persistence_failure", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
