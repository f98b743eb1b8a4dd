package httpapi

import (
	"database/sql"
	"log"
	"net/http"

	"jobscout-engine/internal/engine"
	"jobscout-engine/internal/events"
)

// Deps is everything the API needs wired in.
type Deps struct {
	Engine *engine.Engine
	Hub    *events.Hub
	DB     *sql.DB
	Log    *log.Logger
}

func Router(d Deps) http.Handler {
	sh := &SearchHandler{Engine: d.Engine, Hub: d.Hub, DB: d.DB, Log: d.Log}
	jh := &JobsHandler{DB: d.DB}
	eh := &EventsHandler{Hub: d.Hub}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)
	mux.HandleFunc("/linkedin/jobs/search", sh.Search)
	mux.HandleFunc("/jobs", jh.List)
	mux.HandleFunc("/events", eh.Stream)

	return Chain(mux, RequestID, AccessLog, Recover, Cors)
}
