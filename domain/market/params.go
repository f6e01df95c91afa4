package market

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BpsDenominator is the basis-point scale: 10_000 bps = 100%.
const BpsDenominator = 10_000

// AuctionParams bound the reserve-auction state machine.
type AuctionParams struct {
	MinDuration     time.Duration `json:"min_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	BidIncrementBps uint64        `json:"bid_increment_bps"`
	ExtensionWindow time.Duration `json:"extension_window"`
	CreationFee     *Coin         `json:"creation_fee,omitempty"`
}

func (a AuctionParams) Validate() error {
	if a.MinDuration <= 0 {
		return ErrValidationf("auction min duration must be positive")
	}
	if a.MaxDuration < a.MinDuration {
		return ErrValidationf("auction max duration below min duration")
	}
	if a.ExtensionWindow <= 0 {
		return ErrValidationf("auction extension window must be positive")
	}
	if a.BidIncrementBps >= BpsDenominator {
		return ErrValidationf("bid increment %d bps out of range", a.BidIncrementBps)
	}
	if a.CreationFee != nil {
		if err := a.CreationFee.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Params is the admin-updatable marketplace configuration.
type Params struct {
	ProtocolFeeBps   uint64 `json:"protocol_fee_bps"`
	MaxRoyaltyFeeBps uint64 `json:"max_royalty_fee_bps"`
	MakerRewardBps   uint64 `json:"maker_reward_bps"`
	TakerRewardBps   uint64 `json:"taker_reward_bps"`

	AllowedDenoms []string `json:"allowed_denoms"`

	// Per-class cap on removals in one expiry sweep cycle.
	SweepCapAsks           int `json:"sweep_cap_asks"`
	SweepCapBids           int `json:"sweep_cap_bids"`
	SweepCapCollectionBids int `json:"sweep_cap_collection_bids"`

	FeeManager common.Address `json:"fee_manager"`

	Auction AuctionParams `json:"auction"`
}

func (p Params) Validate() error {
	for _, bps := range []uint64{p.ProtocolFeeBps, p.MaxRoyaltyFeeBps, p.MakerRewardBps, p.TakerRewardBps} {
		if bps >= BpsDenominator {
			return ErrValidationf("fee %d bps out of range", bps)
		}
	}
	if len(p.AllowedDenoms) == 0 {
		return ErrValidationf("allowed denoms is empty")
	}
	for _, d := range p.AllowedDenoms {
		if d == "" {
			return ErrValidationf("allowed denom is empty")
		}
	}
	if p.SweepCapAsks <= 0 || p.SweepCapBids <= 0 || p.SweepCapCollectionBids <= 0 {
		return ErrValidationf("sweep caps must be positive")
	}
	if p.FeeManager == (common.Address{}) {
		return ErrValidationf("fee manager is empty")
	}
	return p.Auction.Validate()
}

func (p Params) DenomAllowed(denom string) bool {
	for _, d := range p.AllowedDenoms {
		if d == denom {
			return true
		}
	}
	return false
}

// SweepCap returns the per-cycle removal cap for an order class.
func (p Params) SweepCap(class OrderClass) int {
	switch class {
	case ClassAsk:
		return p.SweepCapAsks
	case ClassBid:
		return p.SweepCapBids
	default:
		return p.SweepCapCollectionBids
	}
}
