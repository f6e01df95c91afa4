package engine

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"bazaar/domain/auction"
	"bazaar/domain/fees"
	"bazaar/domain/market"
)

// CreateAuctionInput is a validated-address auction creation request.
type CreateAuctionInput struct {
	Seller       common.Address
	Collection   common.Address
	TokenID      string
	ReservePrice market.Coin
	Duration     time.Duration
	Recipient    *common.Address
}

// AuctionResult is what an auction transition hands back.
type AuctionResult struct {
	Auction *auction.Auction             `json:"auction"`
	Settled *market.AuctionSettledRecord `json:"settled,omitempty"`
	Events  []market.Event               `json:"-"`
}

func (e *Engine) putAuction(b *pebble.Batch, a *auction.Auction) error {
	if err := a.Validate(); err != nil {
		return err
	}
	enc, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := b.Set(auctionKey(a.Collection, a.TokenID), enc, nil); err != nil {
		return err
	}
	return b.Set(sellerIdxKey(a.Seller, a.Collection, a.TokenID), nil, nil)
}

func (e *Engine) removeAuction(b *pebble.Batch, a *auction.Auction) error {
	if err := b.Delete(auctionKey(a.Collection, a.TokenID), nil); err != nil {
		return err
	}
	if err := b.Delete(sellerIdxKey(a.Seller, a.Collection, a.TokenID), nil); err != nil {
		return err
	}
	if a.EndTime != nil {
		return b.Delete(endTimeIdxKey(uint64(a.EndTime.Unix()), a.Collection, a.TokenID), nil)
	}
	return nil
}

// GetAuction loads the auction for (collection, token).
func (e *Engine) GetAuction(collection common.Address, tokenID string) (*auction.Auction, error) {
	raw, found, err := e.store.Get(auctionKey(collection, tokenID))
	if err != nil {
		return nil, errors.Wrap(err, "failed on load auction")
	}
	if !found {
		return nil, market.ErrNotFound("auction", collection.Hex()+"/"+tokenID)
	}
	var a auction.Auction
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, errors.Wrap(err, "failed on decode auction")
	}
	return &a, nil
}

// CreateAuction lists a token for reserve auction. The token moves into
// engine custody for the whole auction lifetime; the creation fee (when
// configured) is collected from the seller and forwarded to the fee manager
// in the same transition.
func (e *Engine) CreateAuction(in CreateAuctionInput, now time.Time) (*AuctionResult, error) {
	a := &auction.Auction{
		Collection:   in.Collection,
		TokenID:      in.TokenID,
		Seller:       in.Seller,
		Recipient:    in.Recipient,
		ReservePrice: in.ReservePrice,
		Duration:     in.Duration,
		CreatedAt:    now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if !e.params.DenomAllowed(a.ReservePrice.Denom) {
		return nil, market.ErrValidationf("denom %s is not allowed", a.ReservePrice.Denom)
	}
	ap := e.params.Auction
	if a.Duration < ap.MinDuration || a.Duration > ap.MaxDuration {
		return nil, market.ErrValidationf("auction duration %s outside [%s, %s]", a.Duration, ap.MinDuration, ap.MaxDuration)
	}

	owner, err := e.nft.OwnerOf(a.Collection, a.TokenID)
	if err != nil {
		return nil, market.ErrCollaborator("nft", err)
	}
	if owner != a.Seller {
		return nil, market.ErrUnauthorizedf("%s does not own %s/%s", a.Seller.Hex(), a.Collection.Hex(), a.TokenID)
	}
	approved, err := e.nft.HasApproval(a.Collection, a.TokenID)
	if err != nil {
		return nil, market.ErrCollaborator("nft", err)
	}
	if !approved {
		return nil, market.ErrUnauthorizedf("token %s/%s has no transfer approval", a.Collection.Hex(), a.TokenID)
	}
	if _, err := e.GetAuction(a.Collection, a.TokenID); err == nil {
		return nil, market.ErrConflictf("auction already exists for %s/%s", a.Collection.Hex(), a.TokenID)
	} else if !market.IsNotFound(err) {
		return nil, err
	}

	b := e.store.NewBatch()
	defer b.Close()

	if err := e.putAuction(b, a); err != nil {
		return nil, err
	}

	var effects []effect
	if ap.CreationFee != nil {
		effects = append(effects,
			e.escrowEffect(a.Seller, *ap.CreationFee),
			e.payEffect([]market.Payment{{
				Label:     fees.LabelProtocol,
				Recipient: e.params.FeeManager,
				Amount:    *ap.CreationFee,
			}}),
		)
	}
	effects = append(effects, e.custodyEffect(a.Collection, a.TokenID, a.Seller))

	ev, err := market.NewEvent(market.EventAuctionCreated, a.Collection, now, a)
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	return &AuctionResult{Auction: a, Events: events}, nil
}

// UpdateReservePrice retunes an auction that has not received a bid.
func (e *Engine) UpdateReservePrice(caller, collection common.Address, tokenID string, price market.Coin, now time.Time) (*AuctionResult, error) {
	a, err := e.GetAuction(collection, tokenID)
	if err != nil {
		return nil, err
	}
	if a.Seller != caller {
		return nil, market.ErrUnauthorizedf("%s is not the auction seller", caller.Hex())
	}
	if a.Started() {
		return nil, market.ErrConflictf("auction for %s/%s already has a bid", collection.Hex(), tokenID)
	}
	if err := price.Validate(); err != nil {
		return nil, err
	}
	if !e.params.DenomAllowed(price.Denom) {
		return nil, market.ErrValidationf("denom %s is not allowed", price.Denom)
	}
	a.ReservePrice = price

	b := e.store.NewBatch()
	defer b.Close()

	if err := e.putAuction(b, a); err != nil {
		return nil, err
	}
	ev, err := market.NewEvent(market.EventAuctionUpdated, a.Collection, now, a)
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.commit(b, events); err != nil {
		return nil, err
	}
	return &AuctionResult{Auction: a, Events: events}, nil
}

// CancelAuction withdraws an auction that has not received a bid and hands
// the token back to the seller.
func (e *Engine) CancelAuction(caller, collection common.Address, tokenID string, now time.Time) (*AuctionResult, error) {
	a, err := e.GetAuction(collection, tokenID)
	if err != nil {
		return nil, err
	}
	if a.Seller != caller {
		return nil, market.ErrUnauthorizedf("%s is not the auction seller", caller.Hex())
	}
	if a.Started() {
		return nil, market.ErrConflictf("auction for %s/%s already has a bid", collection.Hex(), tokenID)
	}

	b := e.store.NewBatch()
	defer b.Close()

	if err := e.removeAuction(b, a); err != nil {
		return nil, err
	}
	ev, err := market.NewEvent(market.EventAuctionCancel, a.Collection, now, a)
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	effects := []effect{e.releaseEffect(a.Collection, a.TokenID, a.Seller)}
	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	return &AuctionResult{Auction: a, Events: events}, nil
}

// PlaceBid records a new leading bid. The first bid starts the clock
// (end = now + duration); bids landing inside the extension window push the
// end time out so the window always remains open behind the leader. The
// displaced leader is refunded in the same transition.
func (e *Engine) PlaceBid(bidder, collection common.Address, tokenID string, amount market.Coin, now time.Time) (*AuctionResult, error) {
	a, err := e.GetAuction(collection, tokenID)
	if err != nil {
		return nil, err
	}
	if bidder == a.Seller {
		return nil, market.ErrUnauthorizedf("seller cannot bid on own auction")
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if amount.Denom != a.ReservePrice.Denom {
		return nil, market.ErrValidationf("bid denom %s does not match auction denom %s", amount.Denom, a.ReservePrice.Denom)
	}
	if a.Ended(now) {
		return nil, market.ErrConflictf("auction for %s/%s has ended", collection.Hex(), tokenID)
	}
	minBid, err := a.MinNextBid(e.params.Auction.BidIncrementBps)
	if err != nil {
		return nil, err
	}
	if amount.Amount < minBid {
		return nil, market.ErrValidationf("bid %d below minimum %d", amount.Amount, minBid)
	}

	b := e.store.NewBatch()
	defer b.Close()

	prev := a.HighBid
	var prevEnd *time.Time
	if a.EndTime != nil {
		end := *a.EndTime
		prevEnd = &end
	}

	a.HighBid = &auction.HighBid{Bidder: bidder, Amount: amount}
	if !a.Started() {
		first := now
		end := now.Add(a.Duration)
		a.FirstBidTime = &first
		a.EndTime = &end
	} else if window := e.params.Auction.ExtensionWindow; a.EndTime.Sub(now) < window {
		end := now.Add(window)
		a.EndTime = &end
	}

	// Re-key the end-time index when the deadline moved.
	if prevEnd != nil && !prevEnd.Equal(*a.EndTime) {
		if err := b.Delete(endTimeIdxKey(uint64(prevEnd.Unix()), a.Collection, a.TokenID), nil); err != nil {
			return nil, err
		}
	}
	if prevEnd == nil || !prevEnd.Equal(*a.EndTime) {
		if err := b.Set(endTimeIdxKey(uint64(a.EndTime.Unix()), a.Collection, a.TokenID), nil, nil); err != nil {
			return nil, err
		}
	}
	if err := e.putAuction(b, a); err != nil {
		return nil, err
	}

	// New escrow in, displaced leader out, as one unit.
	effects := []effect{e.escrowEffect(bidder, amount)}
	if prev != nil {
		effects = append(effects, e.refundEffect(prev.Bidder, prev.Amount))
	}

	ev, err := market.NewEvent(market.EventAuctionBid, a.Collection, now, a)
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	return &AuctionResult{Auction: a, Events: events}, nil
}

// SettleAuction concludes an ended auction: fee split over the winning bid,
// token released from custody to the winner, record removed. Anyone may
// settle; the outcome does not depend on the caller.
func (e *Engine) SettleAuction(collection common.Address, tokenID string, now time.Time) (*AuctionResult, error) {
	a, err := e.GetAuction(collection, tokenID)
	if err != nil {
		return nil, err
	}
	if !a.Ended(now) {
		return nil, market.ErrConflictf("auction for %s/%s has not ended", collection.Hex(), tokenID)
	}

	royalty, err := e.lookupRoyalty(a.Collection)
	if err != nil {
		return nil, err
	}
	payments, err := fees.Split(fees.Input{
		Price:            a.HighBid.Amount,
		ProtocolFeeBps:   e.params.ProtocolFeeBps,
		MaxRoyaltyFeeBps: e.params.MaxRoyaltyFeeBps,
		FeeManager:       e.params.FeeManager,
		Seller:           a.FundsRecipient(),
		Royalty:          royalty,
	})
	if err != nil {
		return nil, err
	}

	b := e.store.NewBatch()
	defer b.Close()

	if err := e.removeAuction(b, a); err != nil {
		return nil, err
	}
	winner := a.HighBid.Bidder
	effects := []effect{
		e.payEffect(payments),
		e.releaseEffect(a.Collection, a.TokenID, winner),
	}

	settled := &market.AuctionSettledRecord{
		Collection: a.Collection,
		TokenID:    a.TokenID,
		Seller:     a.Seller,
		Winner:     winner,
		Price:      a.HighBid.Amount,
		Payments:   payments,
	}
	ev, err := market.NewEvent(market.EventAuctionSettled, a.Collection, now, settled)
	if err != nil {
		return nil, err
	}
	events := []market.Event{ev}
	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	return &AuctionResult{Auction: a, Settled: settled, Events: events}, nil
}
