// Package auction holds the reserve-auction record and its state data.
//
// Lifecycle: Created (no bids, seller may retune or cancel) → Active (first
// bid sets the end time) → Ended (past end time, awaiting settlement) →
// Settled (record removed).
package auction

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"bazaar/domain/market"
)

// HighBid is the current leading bid. Funds are held in engine escrow; the
// previous leader is always refunded before a new HighBid is recorded.
type HighBid struct {
	Bidder common.Address `json:"bidder"`
	Amount market.Coin    `json:"amount"`
}

type Auction struct {
	Collection common.Address  `json:"collection"`
	TokenID    string          `json:"token_id"`
	Seller     common.Address  `json:"seller"`
	Recipient  *common.Address `json:"recipient,omitempty"`

	ReservePrice market.Coin   `json:"reserve_price"`
	Duration     time.Duration `json:"duration"`

	EndTime      *time.Time `json:"end_time,omitempty"`
	FirstBidTime *time.Time `json:"first_bid_time,omitempty"`
	HighBid      *HighBid   `json:"high_bid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FundsRecipient is where the seller payment goes.
func (a *Auction) FundsRecipient() common.Address {
	if a.Recipient != nil {
		return *a.Recipient
	}
	return a.Seller
}

// Started reports whether the first bid has been placed.
func (a *Auction) Started() bool { return a.FirstBidTime != nil }

// Ended reports whether block time has reached the end time. An auction
// without bids never ends; its end time is unset.
func (a *Auction) Ended(now time.Time) bool {
	return a.EndTime != nil && !now.Before(*a.EndTime)
}

// Validate checks the record invariants, in particular
// end_time set ⇔ high_bid set.
func (a *Auction) Validate() error {
	if a.Collection == (common.Address{}) {
		return market.ErrValidationf("auction collection is empty")
	}
	if err := market.ValidateTokenID(a.TokenID); err != nil {
		return err
	}
	if a.Seller == (common.Address{}) {
		return market.ErrValidationf("auction seller is empty")
	}
	if err := a.ReservePrice.Validate(); err != nil {
		return err
	}
	if a.Duration <= 0 {
		return market.ErrValidationf("auction duration must be positive")
	}
	if (a.EndTime != nil) != (a.HighBid != nil) {
		return market.ErrValidationf("auction end time and high bid must be set together")
	}
	if (a.FirstBidTime != nil) != (a.HighBid != nil) {
		return market.ErrValidationf("auction first bid time and high bid must be set together")
	}
	return nil
}

// MinNextBid computes the minimum acceptable next bid:
// the reserve price when no bid exists, otherwise
// max(ceil(high × (1 + increment)), high + 1). The +1 floor keeps the
// minimum strictly increasing even when the increment rounds to zero on
// small amounts.
func (a *Auction) MinNextBid(incrementBps uint64) (uint64, error) {
	if a.HighBid == nil {
		return a.ReservePrice.Amount, nil
	}
	high := a.HighBid.Amount.Amount

	scaled := decimal.NewFromBigInt(new(big.Int).SetUint64(high), 0).
		Mul(decimal.NewFromInt(int64(market.BpsDenominator + incrementBps))).
		Shift(-4).
		Ceil().
		BigInt()
	if !scaled.IsUint64() {
		return 0, market.ErrArithmeticf("min bid overflow for high bid %d", high)
	}
	plusOne, err := market.CheckedAdd(high, 1)
	if err != nil {
		return 0, err
	}
	if s := scaled.Uint64(); s > plusOne {
		return s, nil
	}
	return plusOne, nil
}
