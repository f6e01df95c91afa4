package market

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// OrderClass tags the three kinds of standing intents.
type OrderClass uint8

const (
	ClassAsk OrderClass = iota
	ClassBid
	ClassCollectionBid
)

func (c OrderClass) String() string {
	switch c {
	case ClassAsk:
		return "ask"
	case ClassBid:
		return "bid"
	case ClassCollectionBid:
		return "collection_bid"
	default:
		return "unknown"
	}
}

func (c OrderClass) Valid() bool { return c <= ClassCollectionBid }

// Expiry is optional order expiry metadata. Time and Reward are always
// present together; the reward pays whoever sweeps the expired order.
type Expiry struct {
	Time   time.Time `json:"time"`
	Reward Coin      `json:"reward"`
}

// Order is a standing intent: an Ask to sell one token, a Bid to buy one
// token, or a CollectionBid to buy any token of a collection (TokenID empty).
type Order struct {
	ID         common.Hash     `json:"id"`
	Class      OrderClass      `json:"class"`
	Creator    common.Address  `json:"creator"`
	Collection common.Address  `json:"collection"`
	TokenID    string          `json:"token_id,omitempty"`
	Price      Coin            `json:"price"`
	Recipient  *common.Address `json:"recipient,omitempty"`
	Finder     *common.Address `json:"finder,omitempty"`
	Expiry     *Expiry         `json:"expiry,omitempty"`

	// Height is the nonce the ID was derived from.
	Height    uint64    `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// AssetRecipient is where sale proceeds (asks) or the purchased token (bids)
// should go: the explicit recipient if set, else the creator.
func (o *Order) AssetRecipient() common.Address {
	if o.Recipient != nil {
		return *o.Recipient
	}
	return o.Creator
}

// FinderAddr returns the finder or nil.
func (o *Order) FinderAddr() *common.Address { return o.Finder }

// ValidateBasic checks the shape invariants that do not require Params.
func (o *Order) ValidateBasic() error {
	if !o.Class.Valid() {
		return ErrValidationf("unknown order class %d", o.Class)
	}
	if o.Creator == (common.Address{}) {
		return ErrValidationf("order creator is empty")
	}
	if o.Collection == (common.Address{}) {
		return ErrValidationf("order collection is empty")
	}
	if err := o.Price.Validate(); err != nil {
		return err
	}
	switch o.Class {
	case ClassCollectionBid:
		if o.TokenID != "" {
			return ErrValidationf("collection bid must not carry a token id")
		}
	default:
		if err := ValidateTokenID(o.TokenID); err != nil {
			return err
		}
	}
	if o.Expiry != nil {
		if o.Expiry.Time.IsZero() {
			return ErrValidationf("expiry timestamp is zero")
		}
		if err := o.Expiry.Reward.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the full invariants against marketplace params.
func (o *Order) Validate(p Params) error {
	if err := o.ValidateBasic(); err != nil {
		return err
	}
	if !p.DenomAllowed(o.Price.Denom) {
		return ErrValidationf("denom %s is not allowed", o.Price.Denom)
	}
	if o.Expiry != nil && !p.DenomAllowed(o.Expiry.Reward.Denom) {
		return ErrValidationf("expiry reward denom %s is not allowed", o.Expiry.Reward.Denom)
	}
	return nil
}

// ValidateTokenID rejects token ids that cannot appear inside composite
// index keys.
func ValidateTokenID(tokenID string) error {
	if tokenID == "" {
		return ErrValidationf("token id is empty")
	}
	if strings.ContainsRune(tokenID, 0) {
		return ErrValidationf("token id contains NUL")
	}
	return nil
}
