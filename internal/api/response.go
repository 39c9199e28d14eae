package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/spares/internal/ledger"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// ledgerError maps a ledger error onto a response. Storage failures are
// logged with op and reported without detail.
func ledgerError(w http.ResponseWriter, op string, err error) {
	var verr *ledger.ValidationError
	var ierr *ledger.ImportError

	switch {
	case errors.As(err, &ierr):
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error": "import rejected",
			"rows":  ierr.Rows,
		})
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ledger.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ledger.ErrForbidden):
		jsonError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, ledger.ErrInvalidTransition):
		jsonError(w, http.StatusConflict, "request has already been resolved")
	default:
		slog.Error(op+" failed", "error", err)
		jsonError(w, http.StatusInternalServerError, op+" failed")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
