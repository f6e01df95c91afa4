// Package fees turns a sale price into an ordered list of payment
// directives. Every fee rounds up; whatever remains flows to the seller, so
// the directives always sum to the sale price exactly.
package fees

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"bazaar/domain/market"
)

// Payment labels, in disbursement order.
const (
	LabelProtocol    = "protocol"
	LabelMakerReward = "maker_reward"
	LabelTakerReward = "taker_reward"
	LabelRoyalty     = "royalty"
	LabelSeller      = "seller"
)

// Royalty is a registry entry for a collection.
type Royalty struct {
	Recipient common.Address
	ShareBps  uint64
}

// Input carries everything the splitter needs for one sale.
type Input struct {
	Price market.Coin

	ProtocolFeeBps   uint64
	MakerRewardBps   uint64
	TakerRewardBps   uint64
	MaxRoyaltyFeeBps uint64

	FeeManager common.Address
	Seller     common.Address

	// Maker is the resting order's finder, Taker the incoming order's.
	// Nil skips the corresponding carve-out.
	Maker *common.Address
	Taker *common.Address

	Royalty *Royalty
}

// Split computes the payment directives for a sale.
//
// Fixed order: protocol fee, maker and taker rewards carved out of the raw
// protocol fee, royalty, then the seller remainder via checked subtraction.
// Underflow means misconfigured fees and aborts the transition.
func Split(in Input) ([]market.Payment, error) {
	price := in.Price.Amount
	denom := in.Price.Denom

	protocol, err := ceilBps(price, in.ProtocolFeeBps)
	if err != nil {
		return nil, err
	}

	var maker, taker uint64
	if in.Maker != nil && in.MakerRewardBps > 0 {
		if maker, err = ceilBps(protocol, in.MakerRewardBps); err != nil {
			return nil, err
		}
	}
	if in.Taker != nil && in.TakerRewardBps > 0 {
		if taker, err = ceilBps(protocol, in.TakerRewardBps); err != nil {
			return nil, err
		}
	}
	if protocol, err = market.CheckedSub(protocol, maker); err != nil {
		return nil, err
	}
	if protocol, err = market.CheckedSub(protocol, taker); err != nil {
		return nil, err
	}

	var royalty uint64
	if in.Royalty != nil {
		share := in.Royalty.ShareBps
		if share > in.MaxRoyaltyFeeBps {
			share = in.MaxRoyaltyFeeBps
		}
		if royalty, err = ceilBps(price, share); err != nil {
			return nil, err
		}
	}

	seller := price
	for _, fee := range []uint64{protocol, maker, taker, royalty} {
		if seller, err = market.CheckedSub(seller, fee); err != nil {
			return nil, err
		}
	}

	payments := make([]market.Payment, 0, 5)
	add := func(label string, to common.Address, amount uint64) {
		if amount == 0 {
			return
		}
		payments = append(payments, market.Payment{
			Label:     label,
			Recipient: to,
			Amount:    market.NewCoin(denom, amount),
		})
	}
	add(LabelProtocol, in.FeeManager, protocol)
	if in.Maker != nil {
		add(LabelMakerReward, *in.Maker, maker)
	}
	if in.Taker != nil {
		add(LabelTakerReward, *in.Taker, taker)
	}
	if in.Royalty != nil {
		add(LabelRoyalty, in.Royalty.Recipient, royalty)
	}
	add(LabelSeller, in.Seller, seller)

	// Conservation: disbursed amounts must equal the sale price exactly.
	var total uint64
	for _, p := range payments {
		if total, err = market.CheckedAdd(total, p.Amount.Amount); err != nil {
			return nil, err
		}
	}
	if total != price {
		return nil, market.ErrArithmeticf("split of %d disbursed %d", price, total)
	}
	return payments, nil
}

// ceilBps computes ceil(amount × bps / 10000) exactly.
func ceilBps(amount, bps uint64) (uint64, error) {
	if bps == 0 || amount == 0 {
		return 0, nil
	}
	if bps >= market.BpsDenominator {
		return 0, market.ErrArithmeticf("fee %d bps out of range", bps)
	}
	fee := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).
		Mul(decimal.NewFromInt(int64(bps))).
		Shift(-4).
		Ceil().
		BigInt()
	if !fee.IsUint64() {
		return 0, market.ErrArithmeticf("fee overflow: %d at %d bps", amount, bps)
	}
	return fee.Uint64(), nil
}
