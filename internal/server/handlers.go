package server

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/tarkov-dev/site/internal/logging"
	"github.com/tarkov-dev/site/internal/mapview"
	"github.com/tarkov-dev/site/pkg/core"
)

// MapSummary is one entry of the map listing.
type MapSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"normalizedName"`
	DisplayText string              `json:"displayText"`
	Projection  core.ProjectionKind `json:"projection"`
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMapList(w http.ResponseWriter, r *http.Request) {
	ids := s.deps.Catalog.IDs()
	out := make([]MapSummary, 0, len(ids))
	for _, id := range ids {
		d, ok := s.deps.Catalog.Lookup(id)
		if !ok {
			continue
		}
		info := d.Info()
		out = append(out, MapSummary{
			ID:          id,
			Name:        info.NormalizedName,
			DisplayText: info.DisplayText,
			Projection:  d.Kind(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// renderView builds the view of one map with a request-scoped controller.
func (s *Server) renderView(r *http.Request, id string) (mapview.View, bool) {
	ctx := logging.ContextWith(r.Context(), slog.String("remote", r.RemoteAddr))
	logger := s.log.With("map", id)
	ctrl, err := s.newController(logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create map view", "error", err)
		return mapview.View{State: mapview.NoMap, Error: err.Error()}, false
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.WarnContext(ctx, "failed to dispose map view", "error", err)
		}
	}()

	view, err := ctrl.Navigate(id)
	if err != nil {
		logger.WarnContext(ctx, "map view failed", "error", err)
	}
	s.recordView(ctx, id, view.State, SourceHTTP)
	return view, view.State != mapview.NoMap
}

func (s *Server) handleMapView(w http.ResponseWriter, r *http.Request) {
	view, ok := s.renderView(r, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMapPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, ok := s.renderView(r, id)

	page, err := newMapPage(id, view)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to build map page", "map", id, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		s.log.ErrorContext(r.Context(), "failed to render map page", "map", id, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Quests.Snapshot())
}

func (s *Server) handleQuestRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.RefreshQuests(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
