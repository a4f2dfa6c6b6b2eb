package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/reqctx"
	"github.com/law-makers/pricewatch/internal/store"
	"github.com/law-makers/pricewatch/pkg/models"
)

type crawlResponse struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	ComponentID *int64 `json:"component_id,omitempty"`
}

type unavailableResponse struct {
	ComponentID int64  `json:"component_id"`
	Available   bool   `json:"available"`
	Reason      string `json:"reason"`
}

type createComponentRequest struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"sites":  len(s.crawler.SupportedSites()),
	})
}

// startCrawl validates the component and runs the pass in the background
func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	var componentID *int64
	if raw := r.URL.Query().Get("component_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "component_id must be an integer")
			return
		}
		if _, err := s.store.Items(r.Context(), &id); err != nil {
			s.storeError(w, err)
			return
		}
		componentID = &id
	}

	runID := uuid.NewString()
	ctx := reqctx.WithRun(s.base, runID)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, _, err := s.crawler.RunCrawl(ctx, componentID); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Background crawl failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, crawlResponse{
		RunID:       runID,
		Status:      "processing",
		ComponentID: componentID,
	})
}

// bestPrice never fails with a 5xx because of crawl failures; a component
// without a current price is reported as unavailable
func (s *Server) bestPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	best, err := s.crawler.GetBestPrice(r.Context(), id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, best)
	case errors.Is(err, engine.ErrComponentNotFound):
		respondError(w, http.StatusNotFound, "component not found")
	case errors.Is(err, engine.ErrNoValidPrices):
		respondJSON(w, http.StatusOK, unavailableResponse{ComponentID: id, Reason: err.Error()})
	default:
		log.Warn().Err(err).Int64("component_id", id).Msg("Best price lookup failed")
		respondJSON(w, http.StatusOK, unavailableResponse{ComponentID: id, Reason: err.Error()})
	}
}

func (s *Server) supportedSites(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"sites": s.crawler.SupportedSites()})
}

func (s *Server) listComponents(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListComponents(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := items[:0]
		for _, it := range items {
			if it.Category == category {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []models.CatalogItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) getComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := s.store.Items(r.Context(), &id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items[0])
}

func (s *Server) createComponent(w http.ResponseWriter, r *http.Request) {
	var req createComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := s.store.AddComponent(r.Context(), models.CatalogItem{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		Category:     req.Category,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (s *Server) priceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	history, err := s.store.PriceHistory(r.Context(), id, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if history == nil {
		history = []models.PriceRecord{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "component not found")
		return
	}
	log.Error().Err(err).Msg("Store request failed")
	respondError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
