package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"bazaar/domain/market"
	"bazaar/infra/store"
)

// Keyspace layout. Composite index keys end in the record's own ID so byte
// order is a total order even among equal-price entries.
//
//	p/params, p/height                         engine configuration
//	o/<id>                                     order primary record
//	oa/<coll><tok>                             live ask per token → id
//	op/<class><coll>[<tok>]<denom><price><id>  price index
//	oc/<creator><coll><id>                     creator index
//	oe/<class><expiry><id>                     expiry index
//	a/<coll><tok>                              auction primary record
//	as/<seller><coll><tok>                     auction seller index
//	ae/<end><coll><tok>                        auction end-time index
//	x/<seq>                                    event outbox
var (
	keyParams = []byte("p/params")
	keyHeight = []byte("p/height")

	prefixOrder      = []byte("o/")
	prefixAskToken   = []byte("oa/")
	prefixPriceIdx   = []byte("op/")
	prefixCreatorIdx = []byte("oc/")
	prefixExpiryIdx  = []byte("oe/")

	prefixAuction    = []byte("a/")
	prefixSellerIdx  = []byte("as/")
	prefixEndTimeIdx = []byte("ae/")
)

func orderKey(id common.Hash) []byte {
	return store.Key(prefixOrder, id.Bytes())
}

func askTokenKey(collection common.Address, tokenID string) []byte {
	return store.Key(prefixAskToken, collection.Bytes(), store.Str(tokenID))
}

// priceIdxPrefix is the price index prefix up to (excluding) the price.
// Asks and collection bids are keyed per (collection, denom); token bids
// additionally scope to the token so "best bid on this token" is one range.
func priceIdxPrefix(class market.OrderClass, collection common.Address, tokenID, denom string) []byte {
	segs := [][]byte{prefixPriceIdx, {byte(class)}, collection.Bytes()}
	if class == market.ClassBid {
		segs = append(segs, store.Str(tokenID))
	}
	segs = append(segs, store.Str(denom))
	return store.Key(segs...)
}

func priceIdxKey(o *market.Order) []byte {
	return store.Key(
		priceIdxPrefix(o.Class, o.Collection, o.TokenID, o.Price.Denom),
		store.U64(o.Price.Amount),
		o.ID.Bytes(),
	)
}

func creatorIdxKey(o *market.Order) []byte {
	return store.Key(prefixCreatorIdx, o.Creator.Bytes(), o.Collection.Bytes(), o.ID.Bytes())
}

func creatorIdxPrefix(creator, collection common.Address) []byte {
	return store.Key(prefixCreatorIdx, creator.Bytes(), collection.Bytes())
}

func expiryIdxKey(o *market.Order) []byte {
	return store.Key(
		prefixExpiryIdx,
		[]byte{byte(o.Class)},
		store.U64(uint64(o.Expiry.Time.Unix())),
		o.ID.Bytes(),
	)
}

func expiryIdxPrefix(class market.OrderClass) []byte {
	return store.Key(prefixExpiryIdx, []byte{byte(class)})
}

func auctionKey(collection common.Address, tokenID string) []byte {
	return store.Key(prefixAuction, collection.Bytes(), store.Str(tokenID))
}

func sellerIdxKey(seller, collection common.Address, tokenID string) []byte {
	return store.Key(prefixSellerIdx, seller.Bytes(), collection.Bytes(), store.Str(tokenID))
}

func endTimeIdxKey(end uint64, collection common.Address, tokenID string) []byte {
	return store.Key(prefixEndTimeIdx, store.U64(end), collection.Bytes(), store.Str(tokenID))
}

// orderIDFromIndexKey recovers the trailing record ID of an index key.
func orderIDFromIndexKey(key []byte) common.Hash {
	return common.BytesToHash(key[len(key)-common.HashLength:])
}
