package transit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alovak/farecard/internal/metrics"
	"github.com/alovak/farecard/transit/models"
)

// API is a read-only HTTP API for operators of the fare-card service
type API struct {
	service *Service
	metrics *metrics.Metrics
}

func NewAPI(service *Service, m *metrics.Metrics) *API {
	return &API{
		service: service,
		metrics: m,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/-/ready", a.ready)

	r.Get("/cards/{cardID}", a.getCard)
	r.Get("/regions", a.getRegions)

	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.service.Ping(ctx); err != nil {
		http.Error(w, "ledger not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) getCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	card, err := a.service.CheckStatus(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, models.ErrCardNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, card)
}

type region struct {
	Name string `json:"name"`
	Fare int64  `json:"fare"`
}

func (a *API) getRegions(w http.ResponseWriter, r *http.Request) {
	table := a.service.Fares()
	fares := table.Fares()

	regions := make([]region, 0, len(fares))
	for _, name := range table.Regions() {
		regions = append(regions, region{Name: name, Fare: fares[name]})
	}

	writeJSON(w, http.StatusOK, regions)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
