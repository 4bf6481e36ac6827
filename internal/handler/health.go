package handler

import (
	"net/http"
	"time"
)

// healthResponse is the liveness payload.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type testResponse struct {
	Message string `json:"message"`
	Tech    string `json:"tech"`
}

// HandleHealth reports process liveness. It never touches the store.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(createdAtLayout),
		Message:   "Kastor Polyglot Suite API Gateway",
	})
}

// HandleTest is a smoke-test route for the frontend.
//
// HTTP: GET /api/test
func HandleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, testResponse{
		Message: "API Gateway is working!",
		Tech:    "Go + chi + MongoDB",
	})
}
