package auction

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"bazaar/domain/market"
)

var (
	seller     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bidder     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	collection = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

func validAuction() *Auction {
	return &Auction{
		Collection:   collection,
		TokenID:      "42",
		Seller:       seller,
		ReservePrice: market.NewCoin("uatom", 1_000_000),
		Duration:     24 * time.Hour,
		CreatedAt:    time.Now(),
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validAuction().Validate())

	a := validAuction()
	a.Duration = 0
	require.Error(t, a.Validate())

	// end_time without high_bid breaks the lifecycle invariant.
	a = validAuction()
	end := time.Now().Add(time.Hour)
	a.EndTime = &end
	require.Error(t, a.Validate())

	a = validAuction()
	now := time.Now()
	a.FirstBidTime = &now
	a.EndTime = &end
	a.HighBid = &HighBid{Bidder: bidder, Amount: market.NewCoin("uatom", 1_000_000)}
	require.NoError(t, a.Validate())
}

func TestLifecyclePredicates(t *testing.T) {
	a := validAuction()
	now := time.Now()
	require.False(t, a.Started())
	require.False(t, a.Ended(now))

	first := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	a.FirstBidTime = &first
	a.EndTime = &end
	a.HighBid = &HighBid{Bidder: bidder, Amount: a.ReservePrice}
	require.True(t, a.Started())
	require.False(t, a.Ended(now))
	require.True(t, a.Ended(end))
	require.True(t, a.Ended(end.Add(time.Second)))
}

func TestMinNextBid(t *testing.T) {
	a := validAuction()

	// No bid yet: the reserve is the floor.
	min, err := a.MinNextBid(2_500)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), min)

	a.HighBid = &HighBid{Bidder: bidder, Amount: market.NewCoin("uatom", 1_000_000)}
	min, err = a.MinNextBid(2_500)
	require.NoError(t, err)
	require.Equal(t, uint64(1_250_000), min)

	// Increment rounds to nothing on small amounts; +1 keeps it strict.
	a.HighBid.Amount = market.NewCoin("uatom", 3)
	min, err = a.MinNextBid(0)
	require.NoError(t, err)
	require.Equal(t, uint64(4), min)

	// Ceiling applies on inexact increments.
	a.HighBid.Amount = market.NewCoin("uatom", 101)
	min, err = a.MinNextBid(500)
	require.NoError(t, err)
	require.Equal(t, uint64(107), min)
}

func TestFundsRecipient(t *testing.T) {
	a := validAuction()
	require.Equal(t, seller, a.FundsRecipient())

	other := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	a.Recipient = &other
	require.Equal(t, other, a.FundsRecipient())
}
