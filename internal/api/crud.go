package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/db"
	"github.com/openadstack/adselect/internal/models"
)

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// reloadAfterWrite refreshes the in-memory snapshot so reads observe the
// write immediately instead of waiting for the periodic reload.
func (s *Server) reloadAfterWrite(w http.ResponseWriter, entity string) bool {
	if err := s.Reload(); err != nil {
		s.Logger.Error("reload after write", zap.String("entity", entity), zap.Error(err))
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return false
	}
	return true
}

// ===== Advertisement content =====

func (s *Server) ListContent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Store.AllContent())
}

func (s *Server) CreateContent(w http.ResponseWriter, r *http.Request) {
	var c models.AdvertisementContent
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if c.MarketplaceID == "" {
		http.Error(w, "marketplace_id required", http.StatusBadRequest)
		return
	}
	if c.ContentID == "" {
		c.ContentID = uuid.NewString()
	}

	if err := s.PG.InsertContent(c); err != nil {
		s.Logger.Error("insert content", zap.Error(err))
		http.Error(w, "failed to persist content", http.StatusInternalServerError)
		return
	}
	if !s.reloadAfterWrite(w, "content") {
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, c)
}

func (s *Server) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var c models.AdvertisementContent
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	c.ContentID = mux.Vars(r)["id"]

	if err := s.PG.UpdateContent(c); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "content not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("update content", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !s.reloadAfterWrite(w, "content") {
		return
	}
	writeJSON(w, c)
}

func (s *Server) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.PG.DeleteContent(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "content not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("delete content", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !s.reloadAfterWrite(w, "content") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Targeting groups =====

func (s *Server) ListTargetingGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Store.AllTargetingGroups())
}

func (s *Server) CreateTargetingGroup(w http.ResponseWriter, r *http.Request) {
	var tg models.TargetingGroup
	if err := json.NewDecoder(r.Body).Decode(&tg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if _, ok := s.Store.GetContentByID(tg.ContentID); !ok {
		http.Error(w, "unknown content_id", http.StatusBadRequest)
		return
	}
	if tg.TargetingGroupID == "" {
		tg.TargetingGroupID = uuid.NewString()
	}
	// Reject unhydratable predicate specs up front so a bad group can never
	// poison the next reload.
	for _, spec := range tg.PredicateSpecs {
		if _, err := s.Hydrator.Hydrate(spec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := s.PG.InsertTargetingGroup(tg); err != nil {
		s.Logger.Error("insert targeting group", zap.Error(err))
		http.Error(w, "failed to persist targeting group", http.StatusInternalServerError)
		return
	}
	if !s.reloadAfterWrite(w, "targeting_group") {
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, tg)
}

func (s *Server) DeleteTargetingGroup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.PG.DeleteTargetingGroup(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "targeting group not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("delete targeting group", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !s.reloadAfterWrite(w, "targeting_group") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateClickThroughRate sets a new observed click-through rate on a
// targeting group, changing the order in which groups are tried on future
// selections.
func (s *Server) UpdateClickThroughRate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		ClickThroughRate float64 `json:"click_through_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.ClickThroughRate < 0 || body.ClickThroughRate > 1 {
		http.Error(w, "click_through_rate must be within [0, 1]", http.StatusBadRequest)
		return
	}

	if err := s.PG.UpdateClickThroughRate(id, body.ClickThroughRate); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "targeting group not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("update click-through rate", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !s.reloadAfterWrite(w, "targeting_group") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
