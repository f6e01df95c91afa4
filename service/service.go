// Package service is the single entry point in front of the engine. It
// serializes every state transition behind one mutex, enforces admin
// authorization, and fans successful transitions out to hook listeners and
// the live activity feed.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"bazaar/collab"
	"bazaar/domain/auction"
	"bazaar/domain/market"
	"bazaar/engine"
	"bazaar/infra/hooks"
)

// Publisher receives every committed event for live distribution (the
// websocket activity feed). Delivery is best effort.
type Publisher interface {
	Publish(ev market.Event)
}

type Service struct {
	mu  sync.Mutex
	eng *engine.Engine

	admins    collab.AdminResolver
	notifier  *hooks.Notifier
	publisher Publisher

	log *zap.Logger
}

func New(eng *engine.Engine, admins collab.AdminResolver, notifier *hooks.Notifier, log *zap.Logger) *Service {
	return &Service{eng: eng, admins: admins, notifier: notifier, log: log}
}

// SetPublisher attaches the live feed. Call before serving traffic.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

func (s *Service) publish(ctx context.Context, events []market.Event) {
	for _, ev := range events {
		if s.notifier != nil {
			payload, err := json.Marshal(ev)
			if err != nil {
				s.log.Error("encode event", zap.String("type", ev.Type), zap.Error(err))
				continue
			}
			s.notifier.Notify(ctx, ev.Collection.Bytes(), payload)
		}
		if s.publisher != nil {
			s.publisher.Publish(ev)
		}
	}
}

func (s *Service) now() time.Time { return time.Now().UTC() }

// --- order transitions ---

func (s *Service) SetAsk(ctx context.Context, in engine.PlaceOrderInput) (*engine.Result, error) {
	s.mu.Lock()
	res, err := s.eng.SetAsk(in, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) SetBid(ctx context.Context, in engine.PlaceOrderInput) (*engine.Result, error) {
	s.mu.Lock()
	res, err := s.eng.SetBid(in, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) SetCollectionBid(ctx context.Context, in engine.PlaceOrderInput) (*engine.Result, error) {
	s.mu.Lock()
	res, err := s.eng.SetCollectionBid(in, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) UpdateOrder(ctx context.Context, caller common.Address, id common.Hash, price market.Coin) (*engine.Result, error) {
	s.mu.Lock()
	res, err := s.eng.UpdateOrder(caller, id, price, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) RemoveOrder(ctx context.Context, caller common.Address, id common.Hash) (*engine.Result, error) {
	s.mu.Lock()
	res, err := s.eng.RemoveOrder(caller, id, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

// --- auction transitions ---

func (s *Service) CreateAuction(ctx context.Context, in engine.CreateAuctionInput) (*engine.AuctionResult, error) {
	s.mu.Lock()
	res, err := s.eng.CreateAuction(in, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) UpdateReservePrice(ctx context.Context, caller, collection common.Address, tokenID string, price market.Coin) (*engine.AuctionResult, error) {
	s.mu.Lock()
	res, err := s.eng.UpdateReservePrice(caller, collection, tokenID, price, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) CancelAuction(ctx context.Context, caller, collection common.Address, tokenID string) (*engine.AuctionResult, error) {
	s.mu.Lock()
	res, err := s.eng.CancelAuction(caller, collection, tokenID, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) PlaceBid(ctx context.Context, bidder, collection common.Address, tokenID string, amount market.Coin) (*engine.AuctionResult, error) {
	s.mu.Lock()
	res, err := s.eng.PlaceBid(bidder, collection, tokenID, amount, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) SettleAuction(ctx context.Context, collection common.Address, tokenID string) (*engine.AuctionResult, error) {
	s.mu.Lock()
	res, err := s.eng.SettleAuction(collection, tokenID, s.now())
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

// EndCycle runs one expiry sweep. Driven by the sweep job, not exposed over
// the API.
func (s *Service) EndCycle(ctx context.Context) (*market.SweepRecord, error) {
	s.mu.Lock()
	record, err := s.eng.EndCycle(s.now())
	s.mu.Unlock()
	return record, err
}

// --- admin ---

func (s *Service) UpdateParams(caller common.Address, p market.Params) error {
	if !s.admins.IsAdmin(caller) {
		return market.ErrUnauthorizedf("%s is not an admin", caller.Hex())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.UpdateParams(p)
}

func (s *Service) UpdateAllowedDenoms(caller common.Address, denoms []string) error {
	if !s.admins.IsAdmin(caller) {
		return market.ErrUnauthorizedf("%s is not an admin", caller.Hex())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.UpdateAllowedDenoms(denoms)
}

// SetListeners replaces the hook listener set. Admin-only; the list is
// expected to stay small.
func (s *Service) SetListeners(caller common.Address, topics []string) error {
	if !s.admins.IsAdmin(caller) {
		return market.ErrUnauthorizedf("%s is not an admin", caller.Hex())
	}
	if s.notifier != nil {
		s.notifier.SetListeners(topics)
	}
	return nil
}

func (s *Service) Listeners() []string {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Listeners()
}

// --- reads ---

// Params reads the configuration under the transition mutex: UpdateParams
// replaces the struct behind it, so an unlocked read would race.
func (s *Service) Params() market.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Params()
}

func (s *Service) GetOrder(id common.Hash) (*market.Order, error) {
	return s.eng.GetOrder(id)
}

func (s *Service) GetAuction(collection common.Address, tokenID string) (*auction.Auction, error) {
	return s.eng.GetAuction(collection, tokenID)
}

func (s *Service) OrdersByPrice(class market.OrderClass, collection common.Address, tokenID, denom string, p engine.Page) ([]*market.Order, []byte, error) {
	return s.eng.OrdersByPrice(class, collection, tokenID, denom, p)
}

func (s *Service) OrdersByCreator(creator, collection common.Address, p engine.Page) ([]*market.Order, []byte, error) {
	return s.eng.OrdersByCreator(creator, collection, p)
}

func (s *Service) OrdersByExpiry(class market.OrderClass, p engine.Page) ([]*market.Order, []byte, error) {
	return s.eng.OrdersByExpiry(class, p)
}

func (s *Service) AuctionsBySeller(seller common.Address, p engine.Page) ([]*auction.Auction, []byte, error) {
	return s.eng.AuctionsBySeller(seller, p)
}

func (s *Service) AuctionsByEndTime(p engine.Page) ([]*auction.Auction, []byte, error) {
	return s.eng.AuctionsByEndTime(p)
}
