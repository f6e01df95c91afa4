package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"bazaar/domain/market"
	"bazaar/engine"
)

type expiryRequest struct {
	Time   time.Time   `json:"time"`
	Reward market.Coin `json:"reward"`
}

type orderRequest struct {
	Creator    string         `json:"creator"`
	Collection string         `json:"collection"`
	TokenID    string         `json:"token_id"`
	Price      market.Coin    `json:"price"`
	Recipient  *string        `json:"recipient,omitempty"`
	Finder     *string        `json:"finder,omitempty"`
	Expiry     *expiryRequest `json:"expiry,omitempty"`
}

func (req orderRequest) toInput() (engine.PlaceOrderInput, error) {
	var in engine.PlaceOrderInput
	creator, err := parseAddress("creator", req.Creator)
	if err != nil {
		return in, err
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		return in, err
	}
	recipient, err := parseOptionalAddress("recipient", req.Recipient)
	if err != nil {
		return in, err
	}
	finder, err := parseOptionalAddress("finder", req.Finder)
	if err != nil {
		return in, err
	}
	in = engine.PlaceOrderInput{
		Creator:    creator,
		Collection: collection,
		TokenID:    req.TokenID,
		Price:      req.Price,
		Recipient:  recipient,
		Finder:     finder,
	}
	if req.Expiry != nil {
		in.Expiry = &market.Expiry{Time: req.Expiry.Time, Reward: req.Expiry.Reward}
	}
	return in, nil
}

func (s *Server) handleSetAsk(w http.ResponseWriter, r *http.Request) {
	s.handlePlace(w, r, s.svc.SetAsk)
}

func (s *Server) handleSetBid(w http.ResponseWriter, r *http.Request) {
	s.handlePlace(w, r, s.svc.SetBid)
}

func (s *Server) handleSetCollectionBid(w http.ResponseWriter, r *http.Request) {
	s.handlePlace(w, r, s.svc.SetCollectionBid)
}

func (s *Server) handlePlace(
	w http.ResponseWriter,
	r *http.Request,
	place func(ctx context.Context, in engine.PlaceOrderInput) (*engine.Result, error),
) {
	var req orderRequest
	if !s.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	res, err := place(r.Context(), in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := common.HexToHash(chi.URLParam(r, "id"))
	o, err := s.svc.GetOrder(id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, o)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
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
	id := common.HexToHash(chi.URLParam(r, "id"))
	res, err := s.svc.UpdateOrder(r.Context(), caller, id, req.Price)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func (s *Server) handleRemoveOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := parseAddress("caller", r.URL.Query().Get("caller"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	id := common.HexToHash(chi.URLParam(r, "id"))
	res, err := s.svc.RemoveOrder(r.Context(), caller, id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}

func parseClass(s string) (market.OrderClass, error) {
	switch s {
	case "ask":
		return market.ClassAsk, nil
	case "bid":
		return market.ClassBid, nil
	case "collection_bid":
		return market.ClassCollectionBid, nil
	default:
		return 0, market.ErrValidationf("unknown order class %q", s)
	}
}

type listResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// handleListOrders serves the three order indices, selected by "index":
// price (collection+denom, optional token for bids), creator
// (creator+collection), expiry (class only, soonest first).
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePage(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	var (
		orders []*market.Order
		next   []byte
	)
	switch index := q.Get("index"); index {
	case "", "price":
		class, cerr := parseClass(q.Get("class"))
		if cerr != nil {
			s.respondErr(w, cerr)
			return
		}
		collection, cerr := parseAddress("collection", q.Get("collection"))
		if cerr != nil {
			s.respondErr(w, cerr)
			return
		}
		denom := q.Get("denom")
		if denom == "" {
			s.respondErr(w, market.ErrValidationf("missing denom"))
			return
		}
		orders, next, err = s.svc.OrdersByPrice(class, collection, q.Get("token"), denom, page)
	case "creator":
		creator, cerr := parseAddress("creator", q.Get("creator"))
		if cerr != nil {
			s.respondErr(w, cerr)
			return
		}
		collection, cerr := parseAddress("collection", q.Get("collection"))
		if cerr != nil {
			s.respondErr(w, cerr)
			return
		}
		orders, next, err = s.svc.OrdersByCreator(creator, collection, page)
	case "expiry":
		class, cerr := parseClass(q.Get("class"))
		if cerr != nil {
			s.respondErr(w, cerr)
			return
		}
		orders, next, err = s.svc.OrdersByExpiry(class, page)
	default:
		s.respondErr(w, market.ErrValidationf("unknown index %q", index))
		return
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, listResponse{Items: orders, NextCursor: encodeCursor(next)})
}
