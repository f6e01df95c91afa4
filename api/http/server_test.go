package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	"bazaar/service"
)

var (
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	feeManager = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	collection = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

func newTestServer(t *testing.T) (*httptest.Server, *collab.MemoryNFT, *collab.MemoryBank) {
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

	svc := service.New(eng, collab.NewMemoryAdmins(), nil, zap.NewNop())
	srv := NewServer(":0", svc, nil, zap.NewNop())

	ts := httptest.NewServer(srv.srv.Handler)
	t.Cleanup(ts.Close)
	return ts, nft, bank
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlaceAskAndGetOrder(t *testing.T) {
	ts, nft, _ := newTestServer(t)
	nft.Mint(collection, "42", alice)
	nft.Approve(collection, "42")

	resp := postJSON(t, ts.URL+"/v1/asks", map[string]any{
		"creator":    alice.Hex(),
		"collection": collection.Hex(),
		"token_id":   "42",
		"price":      map[string]any{"denom": "uatom", "amount": 110},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var placed struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&placed))
	require.NotEmpty(t, placed.Order.ID)

	got, err := http.Get(ts.URL + "/v1/orders/" + placed.Order.ID)
	require.NoError(t, err)
	defer got.Body.Close()
	require.Equal(t, http.StatusOK, got.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	ts, nft, bank := newTestServer(t)
	nft.Mint(collection, "42", alice)
	nft.Approve(collection, "42")
	bank.Fund(bob, market.NewCoin("uatom", 100))

	// Bad address: 400.
	resp := postJSON(t, ts.URL+"/v1/asks", map[string]any{
		"creator":    "nonsense",
		"collection": collection.Hex(),
		"token_id":   "42",
		"price":      map[string]any{"denom": "uatom", "amount": 110},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Not the owner: 403.
	resp = postJSON(t, ts.URL+"/v1/asks", map[string]any{
		"creator":    bob.Hex(),
		"collection": collection.Hex(),
		"token_id":   "42",
		"price":      map[string]any{"denom": "uatom", "amount": 110},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unknown order: 404.
	got, err := http.Get(ts.URL + "/v1/orders/0x" + "00" + "11223344556677889900112233445566778899001122334455667788990011")
	require.NoError(t, err)
	got.Body.Close()
	require.Equal(t, http.StatusNotFound, got.StatusCode)

	// Duplicate ask: 409.
	body := map[string]any{
		"creator":    alice.Hex(),
		"collection": collection.Hex(),
		"token_id":   "42",
		"price":      map[string]any{"denom": "uatom", "amount": 110},
	}
	resp = postJSON(t, ts.URL+"/v1/asks", body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, ts.URL+"/v1/asks", body)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Admin surface rejects non-admins: 403.
	resp = postJSONPut(t, ts.URL+"/v1/admin/denoms", map[string]any{
		"caller": bob.Hex(),
		"denoms": []string{"uatom"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func postJSONPut(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}
