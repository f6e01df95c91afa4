package collab

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"bazaar/domain/market"
)

// In-memory collaborator implementations, used by tests and local runs.

// -------------------- NFT custody --------------------

type tokenKey struct {
	collection common.Address
	tokenID    string
}

type MemoryNFT struct {
	mu        sync.Mutex
	owners    map[tokenKey]common.Address
	approvals map[tokenKey]bool
	custody   map[tokenKey]bool
}

func NewMemoryNFT() *MemoryNFT {
	return &MemoryNFT{
		owners:    make(map[tokenKey]common.Address),
		approvals: make(map[tokenKey]bool),
		custody:   make(map[tokenKey]bool),
	}
}

// Mint registers a token with an owner.
func (n *MemoryNFT) Mint(collection common.Address, tokenID string, owner common.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners[tokenKey{collection, tokenID}] = owner
}

// Approve grants the engine transfer rights over a token.
func (n *MemoryNFT) Approve(collection common.Address, tokenID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals[tokenKey{collection, tokenID}] = true
}

func (n *MemoryNFT) OwnerOf(collection common.Address, tokenID string) (common.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	owner, ok := n.owners[tokenKey{collection, tokenID}]
	if !ok {
		return common.Address{}, errors.Errorf("token %s/%s unknown", collection.Hex(), tokenID)
	}
	return owner, nil
}

func (n *MemoryNFT) HasApproval(collection common.Address, tokenID string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.approvals[tokenKey{collection, tokenID}], nil
}

func (n *MemoryNFT) Transfer(collection common.Address, tokenID string, from, to common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := tokenKey{collection, tokenID}
	owner, ok := n.owners[key]
	if !ok {
		return errors.Errorf("token %s/%s unknown", collection.Hex(), tokenID)
	}
	if owner != from {
		return errors.Errorf("token %s/%s not owned by %s", collection.Hex(), tokenID, from.Hex())
	}
	n.owners[key] = to
	n.approvals[key] = false
	return nil
}

func (n *MemoryNFT) TakeCustody(collection common.Address, tokenID string, owner common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := tokenKey{collection, tokenID}
	if got, ok := n.owners[key]; !ok || got != owner {
		return errors.Errorf("token %s/%s not owned by %s", collection.Hex(), tokenID, owner.Hex())
	}
	if !n.approvals[key] {
		return errors.Errorf("token %s/%s not approved for custody", collection.Hex(), tokenID)
	}
	n.custody[key] = true
	n.approvals[key] = false
	return nil
}

func (n *MemoryNFT) ReleaseCustody(collection common.Address, tokenID string, to common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := tokenKey{collection, tokenID}
	if !n.custody[key] {
		return errors.Errorf("token %s/%s not in custody", collection.Hex(), tokenID)
	}
	n.custody[key] = false
	n.owners[key] = to
	return nil
}

// InCustody reports whether the engine currently holds the token.
func (n *MemoryNFT) InCustody(collection common.Address, tokenID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.custody[tokenKey{collection, tokenID}]
}

// -------------------- Royalty registry --------------------

type MemoryRoyalties struct {
	mu      sync.Mutex
	entries map[common.Address]RoyaltyEntry
}

func NewMemoryRoyalties() *MemoryRoyalties {
	return &MemoryRoyalties{entries: make(map[common.Address]RoyaltyEntry)}
}

func (r *MemoryRoyalties) Set(collection common.Address, entry RoyaltyEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[collection] = entry
}

func (r *MemoryRoyalties) Lookup(collection common.Address) (*RoyaltyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[collection]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// -------------------- Bank --------------------

type balanceKey struct {
	addr  common.Address
	denom string
}

// MemoryBank tracks participant balances and the engine escrow pool. It
// refuses overdrafts, which makes escrow conservation visible in tests.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[balanceKey]uint64
	escrow   map[string]uint64
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[balanceKey]uint64),
		escrow:   make(map[string]uint64),
	}
}

// Fund credits a participant.
func (b *MemoryBank) Fund(addr common.Address, amount market.Coin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[balanceKey{addr, amount.Denom}] += amount.Amount
}

// Balance returns a participant's balance in a denom.
func (b *MemoryBank) Balance(addr common.Address, denom string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[balanceKey{addr, denom}]
}

// Escrowed returns the engine escrow pool for a denom.
func (b *MemoryBank) Escrowed(denom string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.escrow[denom]
}

func (b *MemoryBank) Escrow(from common.Address, amount market.Coin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := balanceKey{from, amount.Denom}
	if b.balances[key] < amount.Amount {
		return errors.Errorf("insufficient funds: %s has %d%s, needs %s",
			from.Hex(), b.balances[key], amount.Denom, amount)
	}
	b.balances[key] -= amount.Amount
	b.escrow[amount.Denom] += amount.Amount
	return nil
}

func (b *MemoryBank) Refund(to common.Address, amount market.Coin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.escrow[amount.Denom] < amount.Amount {
		return errors.Errorf("escrow underflow: pool has %d%s, refund %s",
			b.escrow[amount.Denom], amount.Denom, amount)
	}
	b.escrow[amount.Denom] -= amount.Amount
	b.balances[balanceKey{to, amount.Denom}] += amount.Amount
	return nil
}

func (b *MemoryBank) Pay(payments []market.Payment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	need := make(map[string]uint64)
	for _, p := range payments {
		need[p.Amount.Denom] += p.Amount.Amount
	}
	for denom, total := range need {
		if b.escrow[denom] < total {
			return errors.Errorf("escrow underflow: pool has %d%s, settlement needs %d",
				b.escrow[denom], denom, total)
		}
	}
	for _, p := range payments {
		b.escrow[p.Amount.Denom] -= p.Amount.Amount
		b.balances[balanceKey{p.Recipient, p.Amount.Denom}] += p.Amount.Amount
	}
	return nil
}

// -------------------- Admin identity --------------------

type MemoryAdmins struct {
	mu     sync.Mutex
	admins map[common.Address]bool
}

func NewMemoryAdmins(addrs ...common.Address) *MemoryAdmins {
	m := &MemoryAdmins{admins: make(map[common.Address]bool)}
	for _, a := range addrs {
		m.admins[a] = true
	}
	return m
}

func (m *MemoryAdmins) IsAdmin(addr common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[addr]
}
