package fees

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"bazaar/domain/market"
)

var (
	feeManager = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	seller     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	makerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	takerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	royaltyTo  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func baseInput(price uint64) Input {
	return Input{
		Price:            market.NewCoin("uatom", price),
		ProtocolFeeBps:   200,
		MakerRewardBps:   4000,
		TakerRewardBps:   1000,
		MaxRoyaltyFeeBps: 1000,
		FeeManager:       feeManager,
		Seller:           seller,
	}
}

func byLabel(t *testing.T, payments []market.Payment) map[string]market.Payment {
	t.Helper()
	out := make(map[string]market.Payment, len(payments))
	for _, p := range payments {
		_, dup := out[p.Label]
		require.False(t, dup, "duplicate label %s", p.Label)
		out[p.Label] = p
	}
	return out
}

func TestSplitWithBothRewards(t *testing.T) {
	in := baseInput(10_000)
	in.Maker = &makerAddr
	in.Taker = &takerAddr

	payments, err := Split(in)
	require.NoError(t, err)

	got := byLabel(t, payments)
	require.Equal(t, uint64(100), got[LabelProtocol].Amount.Amount)
	require.Equal(t, uint64(80), got[LabelMakerReward].Amount.Amount)
	require.Equal(t, uint64(20), got[LabelTakerReward].Amount.Amount)
	require.Equal(t, uint64(9_800), got[LabelSeller].Amount.Amount)
	require.Equal(t, feeManager, got[LabelProtocol].Recipient)
	require.Equal(t, makerAddr, got[LabelMakerReward].Recipient)
	require.Equal(t, takerAddr, got[LabelTakerReward].Recipient)
	require.Equal(t, seller, got[LabelSeller].Recipient)
}

func TestSplitConservation(t *testing.T) {
	royalty := &Royalty{Recipient: royaltyTo, ShareBps: 500}
	cases := []struct {
		name    string
		maker   *common.Address
		taker   *common.Address
		royalty *Royalty
	}{
		{"none", nil, nil, nil},
		{"maker", &makerAddr, nil, nil},
		{"taker", nil, &takerAddr, nil},
		{"both", &makerAddr, &takerAddr, nil},
		{"royalty", nil, nil, royalty},
		{"all", &makerAddr, &takerAddr, royalty},
	}
	// Below a dust floor the rounded-up carve-outs cannot fit and Split
	// errors instead; conservation only holds above it.
	prices := []uint64{99, 10_000, 1_000_003}
	for _, tc := range cases {
		for _, price := range prices {
			in := baseInput(price)
			in.Maker = tc.maker
			in.Taker = tc.taker
			in.Royalty = tc.royalty

			payments, err := Split(in)
			require.NoError(t, err, "%s @ %d", tc.name, price)

			var total uint64
			for _, p := range payments {
				require.NotZero(t, p.Amount.Amount, "%s @ %d: zero directive", tc.name, price)
				total += p.Amount.Amount
			}
			require.Equal(t, price, total, "%s @ %d", tc.name, price)
		}
	}
}

func TestSplitRoyaltyCapped(t *testing.T) {
	in := baseInput(10_000)
	in.Royalty = &Royalty{Recipient: royaltyTo, ShareBps: 5_000}

	payments, err := Split(in)
	require.NoError(t, err)
	got := byLabel(t, payments)
	// Capped at max_royalty_fee_bps = 10%.
	require.Equal(t, uint64(1_000), got[LabelRoyalty].Amount.Amount)
}

func TestSplitNoRewardWithoutFinder(t *testing.T) {
	payments, err := Split(baseInput(10_000))
	require.NoError(t, err)
	got := byLabel(t, payments)
	require.NotContains(t, got, LabelMakerReward)
	require.NotContains(t, got, LabelTakerReward)
	require.Equal(t, uint64(200), got[LabelProtocol].Amount.Amount)
	require.Equal(t, uint64(9_800), got[LabelSeller].Amount.Amount)
}

func TestSplitUnderflowFatal(t *testing.T) {
	// Protocol fee rounds up to the whole price and a royalty cannot fit.
	in := baseInput(1)
	in.ProtocolFeeBps = 9_999
	in.Royalty = &Royalty{Recipient: royaltyTo, ShareBps: 900}

	_, err := Split(in)
	require.Error(t, err)
	var arith *market.ArithmeticError
	require.ErrorAs(t, err, &arith)
}

func TestCeilBpsRoundsUp(t *testing.T) {
	got, err := ceilBps(10_001, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(201), got)

	got, err = ceilBps(10_000, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(200), got)

	got, err = ceilBps(0, 200)
	require.NoError(t, err)
	require.Zero(t, got)
}
