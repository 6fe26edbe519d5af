package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"myshop/internal/apperr"
	"myshop/internal/resource"
)

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeResult renders r as the {state, data|error} envelope with a status
// code derived from its variant.
func writeResult[T any](w http.ResponseWriter, r resource.Result[T]) {
	status := resource.Match(r,
		func() int { return http.StatusAccepted },
		func(T) int { return http.StatusOK },
		statusFor,
	)
	writeJSON(w, status, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("JSON marshal error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, err, "invalid request body")
	}
	return nil
}
