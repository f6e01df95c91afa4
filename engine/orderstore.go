package engine

import (
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"bazaar/domain/market"
	"bazaar/infra/store"
)

// putOrder validates the record and stages the primary write plus every
// secondary index entry in the transition batch.
func (e *Engine) putOrder(b *pebble.Batch, o *market.Order) error {
	if err := o.Validate(e.params); err != nil {
		return err
	}
	enc, err := json.Marshal(o)
	if err != nil {
		return err
	}
	if err := b.Set(orderKey(o.ID), enc, nil); err != nil {
		return err
	}
	if o.Class == market.ClassAsk {
		if err := b.Set(askTokenKey(o.Collection, o.TokenID), o.ID.Bytes(), nil); err != nil {
			return err
		}
	}
	if err := b.Set(priceIdxKey(o), nil, nil); err != nil {
		return err
	}
	if err := b.Set(creatorIdxKey(o), nil, nil); err != nil {
		return err
	}
	if o.Expiry != nil {
		if err := b.Set(expiryIdxKey(o), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// removeOrder stages deletion of the primary record and all of its index
// entries. Orders are removed exactly once; callers hold the loaded record.
func (e *Engine) removeOrder(b *pebble.Batch, o *market.Order) error {
	if err := b.Delete(orderKey(o.ID), nil); err != nil {
		return err
	}
	if o.Class == market.ClassAsk {
		if err := b.Delete(askTokenKey(o.Collection, o.TokenID), nil); err != nil {
			return err
		}
	}
	if err := b.Delete(priceIdxKey(o), nil); err != nil {
		return err
	}
	if err := b.Delete(creatorIdxKey(o), nil); err != nil {
		return err
	}
	if o.Expiry != nil {
		if err := b.Delete(expiryIdxKey(o), nil); err != nil {
			return err
		}
	}
	return nil
}

// GetOrder loads an order by ID.
func (e *Engine) GetOrder(id common.Hash) (*market.Order, error) {
	raw, found, err := e.store.Get(orderKey(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed on load order")
	}
	if !found {
		return nil, market.ErrNotFound("order", id.Hex())
	}
	var o market.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, errors.Wrap(err, "failed on decode order")
	}
	return &o, nil
}

// askByToken returns the live ask for (collection, token), or nil.
func (e *Engine) askByToken(collection common.Address, tokenID string) (*market.Order, error) {
	raw, found, err := e.store.Get(askTokenKey(collection, tokenID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return e.GetOrder(common.BytesToHash(raw))
}

// topOfRange returns the order at one end of a price-index range, or nil.
func (e *Engine) topOfRange(lower, upper []byte, desc bool) (*market.Order, error) {
	entries, err := e.store.Scan(lower, upper, desc, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return e.GetOrder(orderIDFromIndexKey(entries[0].Key))
}

// bestTokenBid is the highest-priced bid on the exact token with
// price >= floor, or nil.
func (e *Engine) bestTokenBid(collection common.Address, tokenID, denom string, floor uint64) (*market.Order, error) {
	prefix := priceIdxPrefix(market.ClassBid, collection, tokenID, denom)
	lower := store.Key(prefix, store.U64(floor))
	return e.topOfRange(lower, store.PrefixEnd(prefix), true)
}

// bestCollectionBid is the highest-priced collection bid with
// price >= floor, or nil.
func (e *Engine) bestCollectionBid(collection common.Address, denom string, floor uint64) (*market.Order, error) {
	prefix := priceIdxPrefix(market.ClassCollectionBid, collection, "", denom)
	lower := store.Key(prefix, store.U64(floor))
	return e.topOfRange(lower, store.PrefixEnd(prefix), true)
}

// lowestAsk is the cheapest ask in the collection with price <= ceiling,
// or nil.
func (e *Engine) lowestAsk(collection common.Address, denom string, ceiling uint64) (*market.Order, error) {
	prefix := priceIdxPrefix(market.ClassAsk, collection, "", denom)
	upper := store.PrefixEnd(store.Key(prefix, store.U64(ceiling)))
	return e.topOfRange(prefix, upper, false)
}
