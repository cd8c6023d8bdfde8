package api

import (
	"net/http"
	"parcel-dispatch-service/internal/api/handlers"
	"parcel-dispatch-service/internal/platform/metrics"
	"time"
)

type Dependencies struct {
	Planner        handlers.RoutePlanner
	Queries        handlers.ParcelQueries
	Updater        handlers.StatusAdvancer
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{Planner: deps.Planner}
	parcelHandler := &handlers.ParcelHandler{
		Queries:        deps.Queries,
		Updater:        deps.Updater,
		MaxUploadBytes: deps.MaxUploadBytes,
	}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /agents/{agentID}/route", routeHandler.Plan)
	mux.HandleFunc("GET /agents/{agentID}/parcels", parcelHandler.ListForAgent)
	mux.HandleFunc("GET /agents/{agentID}/dashboard", parcelHandler.Dashboard)
	mux.HandleFunc("GET /parcels/{parcelID}", parcelHandler.Get)
	mux.HandleFunc("PUT /parcels/{parcelID}/status", parcelHandler.UpdateStatus)

	return requestIDMiddleware(timeoutMiddleware(deps.RequestTimeout, loggingMiddleware(mux)))
}
