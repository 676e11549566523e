package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flabwick/papyrus/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// errorBody is the wire shape of every non-2xx JSON response (§6, §7).
type errorBody struct {
	Error    string            `json:"error"`
	Message  string            `json:"message"`
	Resource string            `json:"resource,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// statusForKind maps an apperr.Kind to its HTTP status, the single point
// where the External Interface Adapter translates the domain's error
// vocabulary into the wire protocol (§7).
func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidationError:
		return http.StatusBadRequest
	case apperr.KindQuotaExceeded:
		return http.StatusInsufficientStorage
	case apperr.KindUnsupportedFile:
		return http.StatusUnsupportedMediaType
	case apperr.KindProcessingError:
		return http.StatusUnprocessableEntity
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err through apperr and writes the matching status
// and errorBody. Errors that don't wrap an *apperr.Error are logged with
// their full detail and returned to the caller as an opaque 500, so
// unclassified failures never leak internals over the wire.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		slog.Error("httpapi.unclassified_error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "internal error"})
		return
	}
	writeJSON(w, statusForKind(appErr.Kind), errorBody{
		Error:    string(appErr.Kind),
		Message:  appErr.Message,
		Resource: appErr.Resource,
		Fields:   appErr.Fields,
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body", map[string]string{"body": err.Error()})
	}
	return nil
}
