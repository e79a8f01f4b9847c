package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MohsinAliJafery/backend/internal/apperrors"
)

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithException writes err using its apperrors kind. Wrapped causes
// are never sent to the client.
func RespondWithException(w http.ResponseWriter, err error) {
	var e *apperrors.Exception
	if !errors.As(err, &e) {
		e = apperrors.Unexpected()
	}
	RespondWithJSON(w, e.Code, map[string]string{"error": e.Message, "kind": string(e.Kind)})
}

func GetHeader(headers map[string][]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
	}
	return ""
}

// AcceptsJSON reports whether the client asked for a JSON response.
func AcceptsJSON(headers map[string][]string) bool {
	return strings.Contains(strings.ToLower(GetHeader(headers, "Accept")), "application/json")
}
