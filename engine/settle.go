package engine

import (
	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"bazaar/domain/fees"
	"bazaar/domain/market"
)

// settle prepares one match between an ask and a bid (token or collection
// class). The resting side is the order that was already stored; the
// incoming order was validated by the caller and is not in the store.
//
// The sale executes at the resting order's price. When the incoming bid
// offered more than the resting ask price, the excess escrow is refunded to
// the bidder in the same settlement. The resting order's expiry reward
// deposit (if any) goes back to its creator: the order is leaving the book
// for a sale, not a sweep.
//
// settle only stages: store mutations go into the batch, collaborator moves
// come back as effects for the caller to run through applyAndCommit.
func (e *Engine) settle(
	b *pebble.Batch,
	ask, bid *market.Order,
	restingIsAsk bool,
) (*market.SaleRecord, []effect, error) {
	resting, incoming := bid, ask
	if restingIsAsk {
		resting, incoming = ask, bid
	}
	price := resting.Price

	royalty, err := e.lookupRoyalty(ask.Collection)
	if err != nil {
		return nil, nil, err
	}

	payments, err := fees.Split(fees.Input{
		Price:            price,
		ProtocolFeeBps:   e.params.ProtocolFeeBps,
		MakerRewardBps:   e.params.MakerRewardBps,
		TakerRewardBps:   e.params.TakerRewardBps,
		MaxRoyaltyFeeBps: e.params.MaxRoyaltyFeeBps,
		FeeManager:       e.params.FeeManager,
		Seller:           ask.AssetRecipient(),
		Maker:            resting.FinderAddr(),
		Taker:            incoming.FinderAddr(),
		Royalty:          royalty,
	})
	if err != nil {
		return nil, nil, err
	}

	// The resting order leaves the book.
	if err := e.removeOrder(b, resting); err != nil {
		return nil, nil, err
	}

	var effects []effect
	if restingIsAsk {
		// The incoming bid's full escrow funds the sale; the excess over
		// the resting ask price goes back to the bidder.
		if excess := bid.Price.Amount - price.Amount; excess > 0 {
			effects = append(effects, e.refundEffect(bid.Creator, market.NewCoin(price.Denom, excess)))
		}
	}
	if resting.Expiry != nil {
		effects = append(effects, e.refundEffect(resting.Creator, resting.Expiry.Reward))
	}
	buyer := bid.AssetRecipient()
	effects = append(effects,
		e.transferEffect(ask.Collection, ask.TokenID, ask.Creator, buyer),
		e.payEffect(payments),
	)

	sale := &market.SaleRecord{
		AskID:      ask.ID,
		BidID:      bid.ID,
		Collection: ask.Collection,
		TokenID:    ask.TokenID,
		Price:      price,
		Seller:     ask.Creator,
		Buyer:      buyer,
		Payments:   payments,
	}
	return sale, effects, nil
}

// lookupRoyalty queries the registry. A lookup failure aborts the
// transition; it is never treated as "no royalty".
func (e *Engine) lookupRoyalty(collection common.Address) (*fees.Royalty, error) {
	entry, err := e.royalties.Lookup(collection)
	if err != nil {
		return nil, market.ErrCollaborator("royalties", err)
	}
	if entry == nil {
		return nil, nil
	}
	return &fees.Royalty{Recipient: entry.Recipient, ShareBps: entry.ShareBps}, nil
}
