package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bazaar/collab"
	"bazaar/domain/market"
	"bazaar/engine"
	"bazaar/infra/outbox"
	"bazaar/infra/store"
)

var (
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	admin      = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	feeManager = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	collection = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

type captureFeed struct {
	mu     sync.Mutex
	events []market.Event
}

func (c *captureFeed) Publish(ev market.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureFeed) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

func newTestService(t *testing.T) (*Service, *collab.MemoryNFT, *collab.MemoryBank, *captureFeed) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ob, err := outbox.Open(s)
	require.NoError(t, err)

	nft := collab.NewMemoryNFT()
	bank := collab.NewMemoryBank()
	params := market.Params{
		ProtocolFeeBps:         200,
		MaxRoyaltyFeeBps:       1000,
		MakerRewardBps:         4000,
		TakerRewardBps:         1000,
		AllowedDenoms:          []string{"uatom"},
		SweepCapAsks:           10,
		SweepCapBids:           10,
		SweepCapCollectionBids: 10,
		FeeManager:             feeManager,
		Auction: market.AuctionParams{
			MinDuration:     time.Hour,
			MaxDuration:     72 * time.Hour,
			BidIncrementBps: 500,
			ExtensionWindow: 15 * time.Minute,
		},
	}
	eng, err := engine.New(s, ob, nft, collab.NewMemoryRoyalties(), bank, params, zap.NewNop())
	require.NoError(t, err)

	svc := New(eng, collab.NewMemoryAdmins(admin), nil, zap.NewNop())
	feed := &captureFeed{}
	svc.SetPublisher(feed)
	return svc, nft, bank, feed
}

func TestAskThenBidPublishesLifecycle(t *testing.T) {
	svc, nft, bank, feed := newTestService(t)
	ctx := context.Background()

	nft.Mint(collection, "42", alice)
	nft.Approve(collection, "42")
	bank.Fund(bob, market.NewCoin("uatom", 110))

	_, err := svc.SetAsk(ctx, engine.PlaceOrderInput{
		Creator:    alice,
		Collection: collection,
		TokenID:    "42",
		Price:      market.NewCoin("uatom", 110),
	})
	require.NoError(t, err)

	res, err := svc.SetBid(ctx, engine.PlaceOrderInput{
		Creator:    bob,
		Collection: collection,
		TokenID:    "42",
		Price:      market.NewCoin("uatom", 110),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Sale)

	require.Equal(t, []string{market.EventOrderCreated, market.EventSale}, feed.types())

	owner, err := nft.OwnerOf(collection, "42")
	require.NoError(t, err)
	require.Equal(t, bob, owner)
}

func TestAdminGate(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	p := svc.Params()
	p.ProtocolFeeBps = 300

	err := svc.UpdateParams(alice, p)
	require.True(t, market.IsUnauthorized(err))
	require.Equal(t, uint64(200), svc.Params().ProtocolFeeBps)

	require.NoError(t, svc.UpdateParams(admin, p))
	require.Equal(t, uint64(300), svc.Params().ProtocolFeeBps)

	err = svc.UpdateAllowedDenoms(bob, []string{"uatom"})
	require.True(t, market.IsUnauthorized(err))
	require.NoError(t, svc.UpdateAllowedDenoms(admin, []string{"uatom", "uosmo"}))
}

func TestParamsReadsDuringUpdates(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	p := svc.Params()
	p.ProtocolFeeBps = 300

	// Reads and admin updates race; both sides go through the mutex, so the
	// race detector stays quiet and the reader always sees a whole struct.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = svc.Params().AllowedDenoms
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			_ = svc.UpdateParams(admin, p)
		}
	}()
	wg.Wait()

	require.Equal(t, uint64(300), svc.Params().ProtocolFeeBps)
}

func TestEndCycleThroughService(t *testing.T) {
	svc, _, bank, feed := newTestService(t)
	ctx := context.Background()

	bank.Fund(bob, market.NewCoin("uatom", 105))
	_, err := svc.SetBid(ctx, engine.PlaceOrderInput{
		Creator:    bob,
		Collection: collection,
		TokenID:    "42",
		Price:      market.NewCoin("uatom", 100),
		Expiry: &market.Expiry{
			Time:   time.Now().UTC().Add(time.Millisecond),
			Reward: market.NewCoin("uatom", 5),
		},
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	record, err := svc.EndCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, record.Removed)
	require.Equal(t, uint64(100), bank.Balance(bob, "uatom"))
	require.Equal(t, []string{market.EventOrderCreated}, feed.types())
}
