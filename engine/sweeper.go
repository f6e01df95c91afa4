package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"bazaar/domain/market"
	"bazaar/infra/store"
)

// EndCycle removes expired orders, up to the per-class cap. Bid price escrow
// goes back to the creator; the expiry reward deposit stays with the engine
// and is disbursed to the fee manager, batched per denom, as compensation
// for the sweep. One cycle is one atomic transition.
func (e *Engine) EndCycle(now time.Time) (*market.SweepRecord, error) {
	b := e.store.NewBatch()
	defer b.Close()

	rewards := make(map[string]uint64)
	var events []market.Event
	var effects []effect
	removed := 0

	for _, class := range []market.OrderClass{market.ClassAsk, market.ClassBid, market.ClassCollectionBid} {
		prefix := expiryIdxPrefix(class)
		upper := store.Key(prefix, store.U64(uint64(now.Unix())+1))
		entries, err := e.store.Scan(prefix, upper, false, e.params.SweepCap(class))
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			o, err := e.GetOrder(orderIDFromIndexKey(entry.Key))
			if err != nil {
				return nil, err
			}
			if o.Expiry == nil {
				return nil, market.ErrConflictf("order %s indexed for expiry without an expiry", o.ID.Hex())
			}
			if err := e.removeOrder(b, o); err != nil {
				return nil, err
			}
			if o.Class != market.ClassAsk {
				effects = append(effects, e.refundEffect(o.Creator, o.Price))
			}
			sum, err := market.CheckedAdd(rewards[o.Expiry.Reward.Denom], o.Expiry.Reward.Amount)
			if err != nil {
				return nil, err
			}
			rewards[o.Expiry.Reward.Denom] = sum
			removed++

			ev, err := market.NewEvent(market.EventOrderExpired, o.Collection, now, market.OrderRecord{Order: o})
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}

	if removed == 0 {
		return &market.SweepRecord{}, nil
	}

	denoms := make([]string, 0, len(rewards))
	for d := range rewards {
		denoms = append(denoms, d)
	}
	sort.Strings(denoms)

	var payments []market.Payment
	record := &market.SweepRecord{Removed: removed}
	for _, d := range denoms {
		if rewards[d] == 0 {
			continue
		}
		coin := market.NewCoin(d, rewards[d])
		record.Rewards = append(record.Rewards, coin)
		payments = append(payments, market.Payment{
			Label:     "sweep_reward",
			Recipient: e.params.FeeManager,
			Amount:    coin,
		})
	}
	if len(payments) > 0 {
		effects = append(effects, e.payEffect(payments))
	}

	if err := e.applyAndCommit(b, effects, events); err != nil {
		return nil, err
	}
	e.log.Info("expiry sweep", zap.Int("removed", removed))
	return record, nil
}
