package engine

import (
	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"bazaar/domain/market"
)

// effect is one collaborator side effect (bank or NFT custody) paired with
// the compensation that undoes it. Transitions collect their effects after
// all validation and fee math, then run them through applyAndCommit.
type effect struct {
	apply func() error
	undo  func() error
}

// applyAndCommit executes the collaborator effects in order and then commits
// the staged batch. Any failure, including the commit itself, compensates
// the already-applied effects in reverse, so an aborted transition leaves no
// partial fund or custody moves behind.
func (e *Engine) applyAndCommit(b *pebble.Batch, effects []effect, events []market.Event) error {
	applied := 0
	var err error
	for ; applied < len(effects); applied++ {
		if err = effects[applied].apply(); err != nil {
			break
		}
	}
	if err == nil {
		if err = e.commit(b, events); err == nil {
			return nil
		}
	}
	for i := applied - 1; i >= 0; i-- {
		if uerr := effects[i].undo(); uerr != nil {
			e.log.Error("compensation failed", zap.Error(uerr))
		}
	}
	return err
}

func (e *Engine) escrowEffect(from common.Address, amount market.Coin) effect {
	return effect{
		apply: func() error {
			if err := e.bank.Escrow(from, amount); err != nil {
				return market.ErrCollaborator("bank", err)
			}
			return nil
		},
		undo: func() error { return e.bank.Refund(from, amount) },
	}
}

func (e *Engine) refundEffect(to common.Address, amount market.Coin) effect {
	return effect{
		apply: func() error {
			if err := e.bank.Refund(to, amount); err != nil {
				return market.ErrCollaborator("bank", err)
			}
			return nil
		},
		undo: func() error { return e.bank.Escrow(to, amount) },
	}
}

func (e *Engine) payEffect(payments []market.Payment) effect {
	return effect{
		apply: func() error {
			if err := e.bank.Pay(payments); err != nil {
				return market.ErrCollaborator("bank", err)
			}
			return nil
		},
		undo: func() error {
			for _, p := range payments {
				if err := e.bank.Escrow(p.Recipient, p.Amount); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (e *Engine) transferEffect(collection common.Address, tokenID string, from, to common.Address) effect {
	return effect{
		apply: func() error {
			if err := e.nft.Transfer(collection, tokenID, from, to); err != nil {
				return market.ErrCollaborator("nft", err)
			}
			return nil
		},
		undo: func() error { return e.nft.Transfer(collection, tokenID, to, from) },
	}
}

func (e *Engine) custodyEffect(collection common.Address, tokenID string, owner common.Address) effect {
	return effect{
		apply: func() error {
			if err := e.nft.TakeCustody(collection, tokenID, owner); err != nil {
				return market.ErrCollaborator("nft", err)
			}
			return nil
		},
		undo: func() error { return e.nft.ReleaseCustody(collection, tokenID, owner) },
	}
}

func (e *Engine) releaseEffect(collection common.Address, tokenID string, to common.Address) effect {
	return effect{
		apply: func() error {
			if err := e.nft.ReleaseCustody(collection, tokenID, to); err != nil {
				return market.ErrCollaborator("nft", err)
			}
			return nil
		},
		undo: func() error { return e.nft.TakeCustody(collection, tokenID, to) },
	}
}
