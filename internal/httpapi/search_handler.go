package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"jobscout-engine/internal/auth"
	"jobscout-engine/internal/engine"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/store"
)

const platformName = "linkedin"

// SearchHandler forwards POST /linkedin/jobs/search to the engine. One
// engine means one authenticated session, so searches are serialized.
type SearchHandler struct {
	Engine *engine.Engine
	Hub    *events.Hub
	DB     *sql.DB // optional; nil skips persistence
	Log    *log.Logger

	mu sync.Mutex
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MaxJobs <= 0 {
		req.MaxJobs = 25
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeSearchStarted, map[string]any{
		"maxJobs": req.MaxJobs,
	}))

	h.mu.Lock()
	records, err := h.Engine.Search(r.Context(), req.Filters, req.MaxJobs)
	h.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		h.Hub.Publish(events.MakeEvent(reqID, events.TypeSearchFailed, map[string]any{
			"error": err.Error(),
		}))
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrAuthFailed) || errors.Is(err, auth.ErrChallengeTimeout) {
			status = http.StatusUnauthorized
		}
		writeJSONStatus(w, status, searchResponse{
			Success:   false,
			Platform:  platformName,
			Error:     err.Error(),
			Timestamp: now,
		})
		return
	}

	if h.DB != nil {
		added := store.SaveResults(r.Context(), h.DB, records)
		h.Log.Printf("[api] persisted %d/%d records", added, len(records))
	}

	h.Hub.Publish(events.MakeEvent(reqID, events.TypeSearchCompleted, map[string]any{
		"count": len(records),
	}))
	writeJSONStatus(w, http.StatusOK, searchResponse{
		Success:   true,
		Platform:  platformName,
		Count:     len(records),
		Data:      records,
		Timestamp: now,
	})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
