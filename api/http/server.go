// Package http is the chi surface in front of the market service. Identity
// is carried in request bodies as hex addresses; the engine treats them as
// already authenticated (signature checking is an edge concern outside this
// process).
package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bazaar/api/ws"
	"bazaar/domain/market"
	"bazaar/engine"
	"bazaar/service"
)

type Server struct {
	svc *service.Service
	hub *ws.Hub
	log *zap.Logger
	srv *http.Server
}

func NewServer(addr string, svc *service.Service, hub *ws.Hub, log *zap.Logger) *Server {
	s := &Server{svc: svc, hub: hub, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if hub != nil {
		r.Handle("/ws", hub)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/asks", s.handleSetAsk)
		r.Post("/bids", s.handleSetBid)
		r.Post("/collection-bids", s.handleSetCollectionBid)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Get("/{id}", s.handleGetOrder)
			r.Put("/{id}", s.handleUpdateOrder)
			r.Delete("/{id}", s.handleRemoveOrder)
		})

		r.Route("/auctions", func(r chi.Router) {
			r.Post("/", s.handleCreateAuction)
			r.Get("/", s.handleListAuctions)
			r.Get("/{collection}/{token}", s.handleGetAuction)
			r.Delete("/{collection}/{token}", s.handleCancelAuction)
			r.Put("/{collection}/{token}/reserve", s.handleUpdateReserve)
			r.Post("/{collection}/{token}/bids", s.handlePlaceAuctionBid)
			r.Post("/{collection}/{token}/settle", s.handleSettleAuction)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Put("/params", s.handleUpdateParams)
			r.Put("/denoms", s.handleUpdateDenoms)
			r.Put("/hooks", s.handleSetListeners)
		})

		r.Get("/params", s.handleGetParams)
	})

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// --- responses ---

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.log.Error("encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case market.IsValidation(err):
		status = http.StatusBadRequest
	case market.IsUnauthorized(err):
		status = http.StatusForbidden
	case market.IsNotFound(err):
		status = http.StatusNotFound
	case market.IsConflict(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondErr(w, market.ErrValidationf("decode request: %v", err))
		return false
	}
	return true
}

// --- parsing ---

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, market.ErrValidationf("%s is not a hex address: %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func parseOptionalAddress(field string, s *string) (*common.Address, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	addr, err := parseAddress(field, *s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func parsePage(r *http.Request) (engine.Page, error) {
	q := r.URL.Query()
	p := engine.Page{Reverse: q.Get("reverse") == "true"}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, market.ErrValidationf("invalid limit %q", raw)
		}
		p.Limit = n
	}
	if raw := q.Get("cursor"); raw != "" {
		cur, err := hex.DecodeString(raw)
		if err != nil {
			return p, market.ErrValidationf("invalid cursor")
		}
		p.Cursor = cur
	}
	return p, nil
}

func encodeCursor(cur []byte) string {
	if len(cur) == 0 {
		return ""
	}
	return hex.EncodeToString(cur)
}
