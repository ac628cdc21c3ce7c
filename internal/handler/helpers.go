package handler

import (
	"errors"
	"net/http"

	"batchtrack/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps typed service errors onto the HTTP surface. Conflict
// responses deliberately use 400, matching the contract consumers rely on.
func respondError(c *gin.Context, err error) {
	var ve *apierror.ValidationError
	var nfe *apierror.NotFoundError
	var ce *apierror.ConflictError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ve)
	case errors.As(err, &nfe):
		c.JSON(http.StatusNotFound, apierror.New(nfe.Detail))
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, apierror.New(ce.Detail))
	default:
		log.Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("store error")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
