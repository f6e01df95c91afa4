package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bazaar/domain/market"
)

func withExpiry(in PlaceOrderInput, at time.Time, reward uint64) PlaceOrderInput {
	in.Expiry = &market.Expiry{Time: at, Reward: market.NewCoin("uatom", reward)}
	return in
}

func TestEndCycleSweepsExpiredOrders(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "1", alice)
	f.bank.Fund(alice, market.NewCoin("uatom", 3))
	f.bank.Fund(bob, market.NewCoin("uatom", 105))
	f.bank.Fund(carol, market.NewCoin("uatom", 87))

	// Ask expiring in 1m, token bid in 10m, collection bid in 5m.
	_, err := f.eng.SetAsk(withExpiry(askInput("1", 200), testTime.Add(time.Minute), 3), testTime)
	require.NoError(t, err)
	_, err = f.eng.SetBid(withExpiry(bidInput(bob, "2", 100), testTime.Add(10*time.Minute), 5), testTime)
	require.NoError(t, err)
	_, err = f.eng.SetCollectionBid(withExpiry(bidInput(carol, "", 80), testTime.Add(5*time.Minute), 7), testTime)
	require.NoError(t, err)

	// Nothing has expired yet.
	record, err := f.eng.EndCycle(testTime)
	require.NoError(t, err)
	require.Zero(t, record.Removed)

	record, err = f.eng.EndCycle(testTime.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, record.Removed)
	require.Len(t, record.Rewards, 1)
	require.Equal(t, uint64(15), record.Rewards[0].Amount)

	// Price escrow back to the bidders; rewards to the fee manager.
	require.Equal(t, uint64(100), f.bank.Balance(bob, "uatom"))
	require.Equal(t, uint64(80), f.bank.Balance(carol, "uatom"))
	require.Equal(t, uint64(15), f.bank.Balance(feeManager, "uatom"))
	require.Zero(t, f.bank.Escrowed("uatom"))

	for _, class := range []market.OrderClass{market.ClassAsk, market.ClassBid, market.ClassCollectionBid} {
		left, _, err := f.eng.OrdersByExpiry(class, Page{})
		require.NoError(t, err)
		require.Empty(t, left, class.String())
	}
}

func TestEndCycleFiltersByTimestamp(t *testing.T) {
	f := newFixture(t)
	f.bank.Fund(bob, market.NewCoin("uatom", 210))

	_, err := f.eng.SetBid(withExpiry(bidInput(bob, "1", 100), testTime.Add(time.Minute), 5), testTime)
	require.NoError(t, err)
	live, err2 := f.eng.SetBid(withExpiry(bidInput(bob, "2", 100), testTime.Add(time.Hour), 5), testTime)
	require.NoError(t, err2)

	record, err := f.eng.EndCycle(testTime.Add(10 * time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, record.Removed)

	// The later expiry survives untouched.
	got, err := f.eng.GetOrder(live.Order.ID)
	require.NoError(t, err)
	require.Equal(t, "2", got.TokenID)
	require.Equal(t, uint64(105), f.bank.Escrowed("uatom"))
}

func TestEndCycleHonorsPerClassCap(t *testing.T) {
	f := newFixture(t)
	f.bank.Fund(bob, market.NewCoin("uatom", 1_000))

	p := testParams()
	p.SweepCapBids = 2
	require.NoError(t, f.eng.UpdateParams(p))

	for _, tok := range []string{"1", "2", "3", "4", "5"} {
		_, err := f.eng.SetBid(withExpiry(bidInput(bob, tok, 100), testTime.Add(time.Minute), 1), testTime)
		require.NoError(t, err)
	}

	record, err := f.eng.EndCycle(testTime.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, record.Removed)

	// The rest drain over subsequent cycles.
	record, err = f.eng.EndCycle(testTime.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, record.Removed)

	record, err = f.eng.EndCycle(testTime.Add(3 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, record.Removed)
	require.Zero(t, f.bank.Escrowed("uatom"))
}
