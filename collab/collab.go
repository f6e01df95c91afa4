// Package collab defines the external collaborators the engine consumes.
// They are modeled as synchronous request/response services; the engine
// never retries them and a failure aborts the calling transition.
package collab

import (
	"github.com/ethereum/go-ethereum/common"

	"bazaar/domain/market"
)

// NFTService is the custody/ownership/approval/transfer collaborator.
// Approval and transfer are relative to the engine's own custody authority.
type NFTService interface {
	OwnerOf(collection common.Address, tokenID string) (common.Address, error)
	// HasApproval reports whether the engine may move the token.
	HasApproval(collection common.Address, tokenID string) (bool, error)
	Transfer(collection common.Address, tokenID string, from, to common.Address) error
	// TakeCustody moves a token from its owner into engine custody
	// (reserve auctions hold the token for their whole lifetime).
	TakeCustody(collection common.Address, tokenID string, owner common.Address) error
	// ReleaseCustody hands a held token to its next owner.
	ReleaseCustody(collection common.Address, tokenID string, to common.Address) error
}

// RoyaltyEntry is a collection royalty: recipient plus share in bps.
type RoyaltyEntry struct {
	Recipient common.Address
	ShareBps  uint64
}

// RoyaltyRegistry looks up the royalty for a collection.
// (nil, nil) means no royalty is configured.
type RoyaltyRegistry interface {
	Lookup(collection common.Address) (*RoyaltyEntry, error)
}

// Bank moves funds between participants and engine escrow.
type Bank interface {
	// Escrow collects funds from a participant into engine custody.
	Escrow(from common.Address, amount market.Coin) error
	// Refund returns escrowed funds to a participant.
	Refund(to common.Address, amount market.Coin) error
	// Pay disburses a settlement out of escrow, all directives or none.
	Pay(payments []market.Payment) error
}

// AdminResolver answers whether an address may perform admin operations.
type AdminResolver interface {
	IsAdmin(addr common.Address) bool
}
