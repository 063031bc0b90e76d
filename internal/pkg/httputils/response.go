package httputils

import (
	"encoding/json"
	"log"
	"net/http"
)

// StatusResponse is the envelope every JSON endpoint answers with.
// Status is 1 on success and 0 on failure, matching what the admin
// page and the upload form expect.
type StatusResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Error  string `json:"error,omitempty"`
	URL    string `json:"url,omitempty"`
	HTML   string `json:"html,omitempty"`
}

func ResponseError(w http.ResponseWriter, errorCode int, errorMessage string) {
	ResponseJSON(w, errorCode, StatusResponse{
		Status: 0,
		Error:  errorMessage,
	})
}

func ResponseOK(w http.ResponseWriter, msg string) {
	ResponseJSON(w, http.StatusOK, StatusResponse{
		Status: 1,
		Msg:    msg,
	})
}

func ResponseJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
