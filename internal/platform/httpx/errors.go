package httpx

import (
	"errors"
	"net/http"

	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// ErrUnsupportedMedia signals a request body that is not JSON.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInvalidArgument):
		Problem(w, http.StatusBadRequest, "Invalid Argument", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusForbidden, "Forbidden", shared.UserSafeMessage(err))
	case errors.Is(err, ErrUnsupportedMedia):
		Problem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
