package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"bazaar/domain/auction"
	"bazaar/domain/market"
	"bazaar/infra/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Page controls pagination for index scans. Cursor is the opaque key of the
// last entry of the previous page; nil starts from the range boundary.
type Page struct {
	Limit   int
	Reverse bool
	Cursor  []byte
}

func (p Page) limit() int {
	if p.Limit <= 0 {
		return defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		return maxPageLimit
	}
	return p.Limit
}

// scanPage walks one page of [lower, upper) and returns the cursor for the
// next page, nil when the range is exhausted.
func (e *Engine) scanPage(lower, upper []byte, p Page) ([]store.Entry, []byte, error) {
	if len(p.Cursor) > 0 {
		if p.Reverse {
			upper = p.Cursor
		} else {
			lower = append(append([]byte{}, p.Cursor...), 0)
		}
	}
	limit := p.limit()
	entries, err := e.store.Scan(lower, upper, p.Reverse, limit)
	if err != nil {
		return nil, nil, err
	}
	var next []byte
	if len(entries) == limit {
		next = entries[len(entries)-1].Key
	}
	return entries, next, nil
}

func (e *Engine) ordersFromIndex(entries []store.Entry) ([]*market.Order, error) {
	out := make([]*market.Order, 0, len(entries))
	for _, entry := range entries {
		o, err := e.GetOrder(orderIDFromIndexKey(entry.Key))
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// OrdersByPrice pages through one class's price index for a collection and
// denom, price-ascending by default. tokenID is only meaningful for token
// bids, whose index is scoped per token.
func (e *Engine) OrdersByPrice(class market.OrderClass, collection common.Address, tokenID, denom string, p Page) ([]*market.Order, []byte, error) {
	prefix := priceIdxPrefix(class, collection, tokenID, denom)
	entries, next, err := e.scanPage(prefix, store.PrefixEnd(prefix), p)
	if err != nil {
		return nil, nil, err
	}
	orders, err := e.ordersFromIndex(entries)
	return orders, next, err
}

// OrdersByCreator pages through one creator's live orders in a collection.
func (e *Engine) OrdersByCreator(creator, collection common.Address, p Page) ([]*market.Order, []byte, error) {
	prefix := creatorIdxPrefix(creator, collection)
	entries, next, err := e.scanPage(prefix, store.PrefixEnd(prefix), p)
	if err != nil {
		return nil, nil, err
	}
	orders, err := e.ordersFromIndex(entries)
	return orders, next, err
}

// OrdersByExpiry pages through one class's expiring orders, soonest first.
func (e *Engine) OrdersByExpiry(class market.OrderClass, p Page) ([]*market.Order, []byte, error) {
	prefix := expiryIdxPrefix(class)
	entries, next, err := e.scanPage(prefix, store.PrefixEnd(prefix), p)
	if err != nil {
		return nil, nil, err
	}
	orders, err := e.ordersFromIndex(entries)
	return orders, next, err
}

// auctionFromIndexKey loads the auction addressed by the (collection, token)
// tail of a seller or end-time index key.
func (e *Engine) auctionFromIndexKey(key []byte, tailOffset int) (*auction.Auction, error) {
	tail := key[tailOffset:]
	collection := common.BytesToAddress(tail[:common.AddressLength])
	tokenID := string(tail[common.AddressLength : len(tail)-1])
	return e.GetAuction(collection, tokenID)
}

// AuctionsBySeller pages through one seller's live auctions.
func (e *Engine) AuctionsBySeller(seller common.Address, p Page) ([]*auction.Auction, []byte, error) {
	prefix := store.Key(prefixSellerIdx, seller.Bytes())
	entries, next, err := e.scanPage(prefix, store.PrefixEnd(prefix), p)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*auction.Auction, 0, len(entries))
	for _, entry := range entries {
		a, err := e.auctionFromIndexKey(entry.Key, len(prefix))
		if err != nil {
			return nil, nil, err
		}
		out = append(out, a)
	}
	return out, next, nil
}

// AuctionsByEndTime pages through started auctions, earliest deadline first.
func (e *Engine) AuctionsByEndTime(p Page) ([]*auction.Auction, []byte, error) {
	entries, next, err := e.scanPage(prefixEndTimeIdx, store.PrefixEnd(prefixEndTimeIdx), p)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*auction.Auction, 0, len(entries))
	for _, entry := range entries {
		a, err := e.auctionFromIndexKey(entry.Key, len(prefixEndTimeIdx)+8)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, a)
	}
	return out, next, nil
}
