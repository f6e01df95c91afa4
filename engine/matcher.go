package engine

import (
	"bazaar/domain/market"
)

// matchForAsk finds the best counter-bid for an incoming ask at its price:
// the highest token bid and the highest collection bid at or above the ask
// price are compared, and on an exact price tie the token-specific bid wins.
// nil means no match; the ask simply rests.
func (e *Engine) matchForAsk(ask *market.Order) (*market.Order, error) {
	tokenBid, err := e.bestTokenBid(ask.Collection, ask.TokenID, ask.Price.Denom, ask.Price.Amount)
	if err != nil {
		return nil, err
	}
	collBid, err := e.bestCollectionBid(ask.Collection, ask.Price.Denom, ask.Price.Amount)
	if err != nil {
		return nil, err
	}
	switch {
	case tokenBid == nil:
		return collBid, nil
	case collBid == nil:
		return tokenBid, nil
	case collBid.Price.Amount > tokenBid.Price.Amount:
		return collBid, nil
	default:
		// Equal prices prefer the token-specific bid.
		return tokenBid, nil
	}
}

// matchForBid finds the resting ask an incoming token bid crosses: the single
// live ask on (collection, token), matched when denoms are equal and the bid
// price covers the ask price.
func (e *Engine) matchForBid(bid *market.Order) (*market.Order, error) {
	ask, err := e.askByToken(bid.Collection, bid.TokenID)
	if err != nil {
		return nil, err
	}
	if ask == nil {
		return nil, nil
	}
	if ask.Price.Denom != bid.Price.Denom || bid.Price.Amount < ask.Price.Amount {
		return nil, nil
	}
	return ask, nil
}

// matchForCollectionBid finds the cheapest ask in the collection the
// incoming collection bid can afford.
func (e *Engine) matchForCollectionBid(bid *market.Order) (*market.Order, error) {
	return e.lowestAsk(bid.Collection, bid.Price.Denom, bid.Price.Amount)
}
