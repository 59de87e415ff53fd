package server

import (
	"context"

	"github.com/tarkov-dev/site/internal/dispatcher"
	"github.com/tarkov-dev/site/internal/mapview"
	"github.com/tarkov-dev/site/pkg/streaming"
)

func (s *Server) registerCommands() {
	s.commands.Register(streaming.TypeNavigate, s.handleNavigate, dispatcher.Logged())
	s.commands.Register(streaming.TypeResize, s.handleResize)
	s.commands.Register(streaming.TypeToggle, s.handleToggle, dispatcher.Logged())
	s.commands.Register(streaming.TypePanZoom, s.handlePanZoom)
}

func (s *Server) handleNavigate(sess *session, e dispatcher.Event) (any, error) {
	var p streaming.NavigatePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	sess.mapID.Store(p.MapID)

	view, err := sess.ctrl.Navigate(p.MapID)
	if err != nil {
		// the fallback view carries the failure
		sess.log.Warn("map view failed", "error", err)
	}
	s.recordView(context.Background(), p.MapID, view.State, SourceWS)
	return view, nil
}

func (s *Server) handleResize(sess *session, e dispatcher.Event) (any, error) {
	var p streaming.ResizePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return sess.ctrl.Resize(p.WindowHeight, p.NavBarHeight), nil
}

func (s *Server) handleToggle(sess *session, e dispatcher.Event) (any, error) {
	var p streaming.TogglePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	view, err := sess.ctrl.Toggle(p.Label, p.Visible)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Server) handlePanZoom(sess *session, e dispatcher.Event) (any, error) {
	var p streaming.PanZoomPayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	view, err := sess.ctrl.SetPanZoom(mapview.PanZoom{Scale: p.Scale, X: p.X, Y: p.Y})
	if err != nil {
		return nil, err
	}
	return view, nil
}
