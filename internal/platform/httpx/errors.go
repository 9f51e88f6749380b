package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// RespondError maps domain errors onto the error envelope. Validation problems
// become 400, missing references 404, state conflicts 409; anything else is a
// 500 with the message passed through.
func RespondError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr), errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
