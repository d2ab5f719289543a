package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

// errorBody is the uniform JSON error payload. Internal detail never leaks
// into it; operators get the real error from the server log.
type errorBody struct {
	Error string `json:"error"`
}

func writeUnauthenticated(w http.ResponseWriter, r *http.Request) {
	// Browsers navigating the dashboard get sent back to the login page;
	// API clients get a 401 they can handle themselves.
	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
}

func writeForbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
}

func writeServerError(w http.ResponseWriter, err error) {
	log.Printf("server: internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// wantsHTML reports whether the client is a navigating browser rather than an
// API caller. Quality factors in Accept don't matter for this distinction.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
