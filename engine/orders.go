package engine

import (
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"bazaar/domain/market"
)

// PlaceOrderInput is a validated-address order placement request.
type PlaceOrderInput struct {
	Creator    common.Address
	Collection common.Address
	TokenID    string
	Price      market.Coin
	Recipient  *common.Address
	Finder     *common.Address
	Expiry     *market.Expiry
}

// Result is what a transition hands back: the order involved, the sale when
// the order matched, and the events staged for publication.
type Result struct {
	Order  *market.Order      `json:"order"`
	Sale   *market.SaleRecord `json:"sale,omitempty"`
	Events []market.Event     `json:"-"`
}

func (e *Engine) buildOrder(class market.OrderClass, in PlaceOrderInput, height uint64, now time.Time) *market.Order {
	return &market.Order{
		ID:         market.OrderID(class, in.Collection, in.TokenID, height),
		Class:      class,
		Creator:    in.Creator,
		Collection: in.Collection,
		TokenID:    in.TokenID,
		Price:      in.Price,
		Recipient:  in.Recipient,
		Finder:     in.Finder,
		Expiry:     in.Expiry,
		Height:     height,
		CreatedAt:  now,
	}
}

func validateExpiry(ex *market.Expiry, now time.Time) error {
	if ex != nil && !ex.Time.After(now) {
		return market.ErrValidationf("expiry %s is not in the future", ex.Time)
	}
	return nil
}

// SetAsk places a sell intent. The creator must own the token and have
// pre-authorized custody transfer; the price itself is not collected. A
// crossing bid settles immediately, otherwise the ask rests.
func (e *Engine) SetAsk(in PlaceOrderInput, now time.Time) (*Result, error) {
	b := e.store.NewBatch()
	defer b.Close()

	height, err := e.nextHeight(b)
	if err != nil {
		return nil, err
	}
	o := e.buildOrder(market.ClassAsk, in, height, now)
	if err := o.Validate(e.params); err != nil {
		return nil, err
	}
	if err := validateExpiry(o.Expiry, now); err != nil {
		return nil, err
	}

	owner, err := e.nft.OwnerOf(o.Collection, o.TokenID)
	if err != nil {
		return nil, market.ErrCollaborator("nft", err)
	}
	if owner != o.Creator {
		return nil, market.ErrUnauthorizedf("%s does not own %s/%s", o.Creator.Hex(), o.Collection.Hex(), o.TokenID)
	}
	approved, err := e.nft.HasApproval(o.Collection, o.TokenID)
	if err != nil {
		return nil, market.ErrCollaborator("nft", err)
	}
	if !approved {
		return nil, market.ErrUnauthorizedf("token %s/%s has no transfer approval", o.Collection.Hex(), o.TokenID)
	}
	if existing, err := e.askByToken(o.Collection, o.TokenID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, market.ErrConflictf("ask already exists for %s/%s", o.Collection.Hex(), o.TokenID)
	}

	bid, err := e.matchForAsk(o)
	if err != nil {
		return nil, err
	}
	if bid != nil {
		return e.finishSale(b, o, bid, false, nil, now)
	}
	return e.rest(b, o, now)
}

// SetBid places a buy intent for one token. Funds are collected into escrow
// as the transition commits; a crossing ask settles at the ask price.
func (e *Engine) SetBid(in PlaceOrderInput, now time.Time) (*Result, error) {
	return e.placeBidClass(market.ClassBid, in, now)
}

// SetCollectionBid places a buy intent for any token in the collection.
func (e *Engine) SetCollectionBid(in PlaceOrderInput, now time.Time) (*Result, error) {
	in.TokenID = ""
	return e.placeBidClass(market.ClassCollectionBid, in, now)
}

func (e *Engine) placeBidClass(class market.OrderClass, in PlaceOrderInput, now time.Time) (*Result, error) {
	b := e.store.NewBatch()
	defer b.Close()

	height, err := e.nextHeight(b)
	if err != nil {
		return nil, err
	}
	o := e.buildOrder(class, in, height, now)
	if err := o.Validate(e.params); err != nil {
		return nil, err
	}
	if err := validateExpiry(o.Expiry, now); err != nil {
		return nil, err
	}

	var ask *market.Order
	if class == market.ClassBid {
		ask, err = e.matchForBid(o)
	} else {
		ask, err = e.matchForCollectionBid(o)
	}
	if err != nil {
		return nil, err
	}
	if ask != nil {
		// The bid's price is escrowed first, then settlement draws on it.
		pre := []effect{e.escrowEffect(o.Creator, o.Price)}
		return e.finishSale(b, ask, o, true, pre, now)
	}
	return e.rest(b, o, now)
}

// rest stores an order that found no match. The bid price and expiry reward
// deposits land in escrow together with the commit.
func (e *Engine) rest(b *pebble.Batch, o *market.Order, now time.Time) (*Result, error) {
	if err := e.putOrder(b, o); err != nil {
		return nil, err
	}
	ev, err := market.NewEvent(market.EventOrderCreated, o.Collection, now, market.OrderRecord{Order: o})
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}

	var effects []effect
	if o.Class != market.ClassAsk {
		effects = append(effects, e.escrowEffect(o.Creator, o.Price))
	}
	if o.Expiry != nil {
		effects = append(effects, e.escrowEffect(o.Creator, o.Expiry.Reward))
	}
	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	return &Result{Order: o, Events: events}, nil
}

// finishSale runs settlement for a matched pair and commits the transition.
// pre carries the caller's own effects (incoming bid escrow, update deltas);
// they run before the settlement effects and roll back with them on abort.
func (e *Engine) finishSale(b *pebble.Batch, ask, bid *market.Order, restingIsAsk bool, pre []effect, now time.Time) (*Result, error) {
	sale, effects, err := e.settle(b, ask, bid, restingIsAsk)
	if err != nil {
		return nil, err
	}
	ev, err := market.NewEvent(market.EventSale, sale.Collection, now, sale)
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.applyAndCommit(b, append(pre, effects...), events); err != nil {
		return nil, err
	}
	incoming := bid
	if !restingIsAsk {
		incoming = ask
	}
	return &Result{Order: incoming, Sale: sale, Events: events}, nil
}

// UpdateOrder changes an order's price. Creator-only; the escrow delta is
// refunded or collected atomically with the re-index, and the updated order
// is re-run through the matcher.
func (e *Engine) UpdateOrder(caller common.Address, id common.Hash, newPrice market.Coin, now time.Time) (*Result, error) {
	o, err := e.GetOrder(id)
	if err != nil {
		return nil, err
	}
	if o.Creator != caller {
		return nil, market.ErrUnauthorizedf("%s is not the creator of %s", caller.Hex(), id.Hex())
	}
	if err := newPrice.Validate(); err != nil {
		return nil, err
	}
	if !e.params.DenomAllowed(newPrice.Denom) {
		return nil, market.ErrValidationf("denom %s is not allowed", newPrice.Denom)
	}
	if newPrice.Denom != o.Price.Denom {
		return nil, market.ErrValidationf("cannot change order denom %s to %s", o.Price.Denom, newPrice.Denom)
	}

	b := e.store.NewBatch()
	defer b.Close()

	if err := e.removeOrder(b, o); err != nil {
		return nil, err
	}

	// Bid escrow tracks the price; the delta settles with the commit.
	var delta []effect
	if o.Class != market.ClassAsk && newPrice.Amount != o.Price.Amount {
		if newPrice.Amount > o.Price.Amount {
			coin := market.NewCoin(o.Price.Denom, newPrice.Amount-o.Price.Amount)
			delta = append(delta, e.escrowEffect(o.Creator, coin))
		} else {
			coin := market.NewCoin(o.Price.Denom, o.Price.Amount-newPrice.Amount)
			delta = append(delta, e.refundEffect(o.Creator, coin))
		}
	}

	updated := *o
	updated.Price = newPrice

	var counter *market.Order
	switch updated.Class {
	case market.ClassAsk:
		counter, err = e.matchForAsk(&updated)
	case market.ClassBid:
		counter, err = e.matchForBid(&updated)
	default:
		counter, err = e.matchForCollectionBid(&updated)
	}
	if err != nil {
		return nil, err
	}
	if counter != nil {
		// The updated order is the incoming side of the settlement, but its
		// reward deposit was escrowed when it first rested; hand it back
		// since the order leaves the book by sale, not by sweep.
		pre := delta
		if updated.Expiry != nil {
			pre = append(pre, e.refundEffect(updated.Creator, updated.Expiry.Reward))
		}
		if updated.Class == market.ClassAsk {
			return e.finishSale(b, &updated, counter, false, pre, now)
		}
		return e.finishSale(b, counter, &updated, true, pre, now)
	}

	if err := e.putOrder(b, &updated); err != nil {
		return nil, err
	}
	ev, err := market.NewEvent(market.EventOrderUpdated, updated.Collection, now, market.OrderRecord{Order: &updated})
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.applyAndCommit(b, delta, events); err != nil {
		return nil, err
	}
	return &Result{Order: &updated, Events: events}, nil
}

// RemoveOrder cancels an order. Creator-only; escrowed funds (bid price,
// expiry reward) are refunded in full.
func (e *Engine) RemoveOrder(caller common.Address, id common.Hash, now time.Time) (*Result, error) {
	o, err := e.GetOrder(id)
	if err != nil {
		return nil, err
	}
	if o.Creator != caller {
		return nil, market.ErrUnauthorizedf("%s is not the creator of %s", caller.Hex(), id.Hex())
	}

	b := e.store.NewBatch()
	defer b.Close()

	if err := e.removeOrder(b, o); err != nil {
		return nil, err
	}
	var effects []effect
	if o.Class != market.ClassAsk {
		effects = append(effects, e.refundEffect(o.Creator, o.Price))
	}
	if o.Expiry != nil {
		effects = append(effects, e.refundEffect(o.Creator, o.Expiry.Reward))
	}
	ev, err := market.NewEvent(market.EventOrderRemoved, o.Collection, now, market.OrderRecord{Order: o})
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	return &Result{Order: o, Events: events}, nil
}
