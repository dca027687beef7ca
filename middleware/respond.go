package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/aegis/autherr"
)

// WriteError writes e as JSON with the status mapped from its code.
func WriteError(w http.ResponseWriter, e *autherr.Error) {
	WriteErrorStatus(w, e.Status(), e)
}

// WriteErrorStatus writes e as JSON with an explicit status.
func WriteErrorStatus(w http.ResponseWriter, status int, e *autherr.Error) {
	if e == nil {
		e = &autherr.Error{Code: autherr.InternalError, Message: "Internal error."}
	}
	WriteJSON(w, status, e)
}

// WriteJSON writes v as a JSON body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
