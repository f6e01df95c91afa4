package http

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"bazaar/domain/market"
	"bazaar/engine"
)

type auctionRequest struct {
	Seller       string      `json:"seller"`
	Collection   string      `json:"collection"`
	TokenID      string      `json:"token_id"`
	ReservePrice market.Coin `json:"reserve_price"`
	Duration     string      `json:"duration"`
	Recipient    *string     `json:"recipient,omitempty"`
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req auctionRequest
	if !s.decode(w, r, &req) {
		return
	}
	seller, err := parseAddress("seller", req.Seller)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	recipient, err := parseOptionalAddress("recipient", req.Recipient)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		s.respondErr(w, market.ErrValidationf("invalid duration %q", req.Duration))
		return
	}
	res, err := s.svc.CreateAuction(r.Context(), engine.CreateAuctionInput{
		Seller:       seller,
		Collection:   collection,
		TokenID:      req.TokenID,
		ReservePrice: req.ReservePrice,
		Duration:     duration,
		Recipient:    recipient,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func auctionParams(r *http.Request) (common.Address, string, error) {
	collection, err := parseAddress("collection", chi.URLParam(r, "collection"))
	if err != nil {
		return common.Address{}, "", err
	}
	return collection, chi.URLParam(r, "token"), nil
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	collection, tokenID, err := auctionParams(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	a, err := s.svc.GetAuction(collection, tokenID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, a)
}

func (s *Server) handleUpdateReserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string      `json:"caller"`
		Price  market.Coin `json:"price"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	collection, tokenID, err := auctionParams(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	res, err := s.svc.UpdateReservePrice(r.Context(), caller, collection, tokenID, req.Price)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func (s *Server) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	caller, err := parseAddress("caller", r.URL.Query().Get("caller"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	collection, tokenID, err := auctionParams(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	res, err := s.svc.CancelAuction(r.Context(), caller, collection, tokenID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func (s *Server) handlePlaceAuctionBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bidder string      `json:"bidder"`
		Amount market.Coin `json:"amount"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	bidder, err := parseAddress("bidder", req.Bidder)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	collection, tokenID, err := auctionParams(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	res, err := s.svc.PlaceBid(r.Context(), bidder, collection, tokenID, req.Amount)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func (s *Server) handleSettleAuction(w http.ResponseWriter, r *http.Request) {
	collection, tokenID, err := auctionParams(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	res, err := s.svc.SettleAuction(r.Context(), collection, tokenID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

// handleListAuctions lists by seller when "seller" is given, otherwise by
// end time (earliest deadline first).
func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if raw := r.URL.Query().Get("seller"); raw != "" {
		seller, err := parseAddress("seller", raw)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		items, next, err := s.svc.AuctionsBySeller(seller, page)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		s.respond(w, http.StatusOK, listResponse{Items: items, NextCursor: encodeCursor(next)})
		return
	}
	items, next, err := s.svc.AuctionsByEndTime(page)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, listResponse{Items: items, NextCursor: encodeCursor(next)})
}
