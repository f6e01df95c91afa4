// Package engine is the marketplace state machine: the indexed order store,
// the matcher, the reserve-auction engine and the expiry sweeper.
//
// Every transition runs to completion under a single logical writer (the
// service layer serializes callers) and stages all of its mutations in one
// store batch: either the whole transition commits or none of it does.
package engine

import (
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bazaar/collab"
	"bazaar/domain/market"
	"bazaar/infra/outbox"
	"bazaar/infra/sequence"
	"bazaar/infra/store"
)

type Engine struct {
	store   *store.Store
	outbox  *outbox.Outbox
	heights *sequence.Sequencer

	nft       collab.NFTService
	royalties collab.RoyaltyRegistry
	bank      collab.Bank

	params market.Params
	log    *zap.Logger
}

// New wires the engine over an opened store. Stored params win over the
// provided defaults; the height sequencer is re-seeded from the store so
// order IDs stay collision-free across restarts.
func New(
	s *store.Store,
	ob *outbox.Outbox,
	nft collab.NFTService,
	royalties collab.RoyaltyRegistry,
	bank collab.Bank,
	defaults market.Params,
	log *zap.Logger,
) (*Engine, error) {
	e := &Engine{
		store:     s,
		outbox:    ob,
		nft:       nft,
		royalties: royalties,
		bank:      bank,
		log:       log,
	}

	raw, found, err := s.Get(keyParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed on load params")
	}
	if found {
		if err := json.Unmarshal(raw, &e.params); err != nil {
			return nil, errors.Wrap(err, "failed on decode params")
		}
	} else {
		if err := defaults.Validate(); err != nil {
			return nil, err
		}
		e.params = defaults
		enc, err := json.Marshal(defaults)
		if err != nil {
			return nil, err
		}
		if err := s.Set(keyParams, enc); err != nil {
			return nil, errors.Wrap(err, "failed on persist params")
		}
	}

	var height uint64
	if raw, found, err = s.Get(keyHeight); err != nil {
		return nil, errors.Wrap(err, "failed on load height")
	} else if found {
		height = store.DecodeU64(raw)
	}
	e.heights = sequence.New(height)

	return e, nil
}

// Params returns the current marketplace configuration.
func (e *Engine) Params() market.Params { return e.params }

// UpdateParams replaces the configuration. Authorization is the caller's
// concern (service layer + admin resolver).
func (e *Engine) UpdateParams(p market.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	enc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := e.store.Set(keyParams, enc); err != nil {
		return errors.Wrap(err, "failed on persist params")
	}
	e.params = p
	return nil
}

// UpdateAllowedDenoms replaces only the denom allow-list.
func (e *Engine) UpdateAllowedDenoms(denoms []string) error {
	p := e.params
	p.AllowedDenoms = denoms
	return e.UpdateParams(p)
}

// nextHeight issues a height and stages its persistence in the batch.
func (e *Engine) nextHeight(b *pebble.Batch) (uint64, error) {
	h := e.heights.Next()
	if err := b.Set(keyHeight, store.U64(h), nil); err != nil {
		return 0, err
	}
	return h, nil
}

// emit stages events into the outbox alongside the transition's writes.
func (e *Engine) emit(b *pebble.Batch, events []market.Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err := e.outbox.Append(b, payload); err != nil {
			return err
		}
	}
	return nil
}

// commit finalizes a transition: outbox entries plus the staged mutations
// land as one unit.
func (e *Engine) commit(b *pebble.Batch, events []market.Event) error {
	if err := e.emit(b, events); err != nil {
		return err
	}
	return e.store.Commit(b)
}
