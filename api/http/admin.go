package http

import (
	"net/http"

	"bazaar/domain/market"
)

func (s *Server) handleGetParams(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.svc.Params())
}

func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string        `json:"caller"`
		Params market.Params `json:"params"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.svc.UpdateParams(caller, req.Params); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, s.svc.Params())
}

func (s *Server) handleUpdateDenoms(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string   `json:"caller"`
		Denoms []string `json:"denoms"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.svc.UpdateAllowedDenoms(caller, req.Denoms); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, s.svc.Params())
}

func (s *Server) handleSetListeners(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller    string   `json:"caller"`
		Listeners []string `json:"listeners"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.svc.SetListeners(caller, req.Listeners); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string][]string{"listeners": s.svc.Listeners()})
}
