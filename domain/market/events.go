package market

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event types published to the outbox, hooks and the activity feed.
const (
	EventOrderCreated   = "order_created"
	EventOrderUpdated   = "order_updated"
	EventOrderRemoved   = "order_removed"
	EventOrderExpired   = "order_expired"
	EventSale           = "sale"
	EventAuctionCreated = "auction_created"
	EventAuctionUpdated = "auction_updated"
	EventAuctionCancel  = "auction_cancelled"
	EventAuctionBid     = "auction_bid"
	EventAuctionSettled = "auction_settled"
)

// Event is the envelope every published record travels in.
type Event struct {
	Type       string          `json:"type"`
	Collection common.Address  `json:"collection"`
	At         time.Time       `json:"at"`
	Data       json.RawMessage `json:"data"`
}

// NewEvent marshals data into an envelope. Marshal failures are programming
// errors and surface as ValidationError.
func NewEvent(typ string, collection common.Address, at time.Time, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, ErrValidationf("encode %s event: %v", typ, err)
	}
	return Event{Type: typ, Collection: collection, At: at, Data: raw}, nil
}

// SaleRecord is emitted for every match: both order ids, the executed price
// and each payment directive.
type SaleRecord struct {
	AskID      common.Hash    `json:"ask_id"`
	BidID      common.Hash    `json:"bid_id"`
	Collection common.Address `json:"collection"`
	TokenID    string         `json:"token_id"`
	Price      Coin           `json:"price"`
	Seller     common.Address `json:"seller"`
	Buyer      common.Address `json:"buyer"`
	Payments   []Payment      `json:"payments"`
}

// OrderRecord is the payload for order lifecycle events.
type OrderRecord struct {
	Order *Order `json:"order"`
}

// AuctionSettledRecord is the payload for a settled auction.
type AuctionSettledRecord struct {
	Collection common.Address `json:"collection"`
	TokenID    string         `json:"token_id"`
	Seller     common.Address `json:"seller"`
	Winner     common.Address `json:"winner"`
	Price      Coin           `json:"price"`
	Payments   []Payment      `json:"payments"`
}

// SweepRecord summarizes one expiry sweep cycle.
type SweepRecord struct {
	Removed int    `json:"removed"`
	Rewards []Coin `json:"rewards"`
}
