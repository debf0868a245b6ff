// A local stand-in for the Paystack transaction API. It accepts any
// initialize call, remembers the reference, and reports success on verify.
// References containing "fail" verify as failed; references it has never
// seen return the provider's not-found envelope. Useful for running the API
// end to end without a Paystack account.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/saphire-ai/backend/internal/logging"
)

type stub struct {
	mu   sync.Mutex
	seen map[string]int64
	next int64
}

func main() {
	logging.Init("paystack-stub", "info", os.Getenv("APP_ENV"))

	s := &stub{seen: make(map[string]int64), next: 1000000}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transaction/initialize", s.initialize)
	mux.HandleFunc("GET /transaction/verify/{reference}", s.verify)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	slog.Info("paystack stub started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (s *stub) initialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  false,
			"message": "Invalid request",
		})
		return
	}

	s.mu.Lock()
	s.next++
	s.seen[req.Reference] = s.next
	s.mu.Unlock()

	slog.Info("transaction initialized", "reference", req.Reference, "amount", req.Amount)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Authorization URL created",
		"data": map[string]string{
			"authorization_url": fmt.Sprintf("http://localhost:8081/pay/%s", req.Reference),
			"access_code":       "ac_" + req.Reference,
			"reference":         req.Reference,
		},
	})
}

func (s *stub) verify(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")

	s.mu.Lock()
	id, ok := s.seen[reference]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":  false,
			"message": "Transaction reference not found",
		})
		return
	}

	status := "success"
	response := "Successful"
	if strings.Contains(reference, "fail") {
		status = "failed"
		response = "Declined"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Verification successful",
		"data": map[string]any{
			"id":              id,
			"status":          status,
			"reference":       reference,
			"channel":         "card",
			"gateway_response": response,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
