package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-user-auth/users"
)

const contentTypeJSON = "application/json; charset=utf-8"

// tokenPayload mirrors the token object in the register/login envelope.
type tokenPayload struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// sessionResponse is the envelope returned by register, login and the
// social callback.
type sessionResponse struct {
	User    *users.User  `json:"user"`
	Message string       `json:"message"`
	Token   tokenPayload `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStatus writes a bare status with no body, for failures that must
// not leak detail.
func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}
