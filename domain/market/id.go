package market

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OrderID derives the order identity from its immutable inputs. The height
// nonce keeps multiple bids on the same token distinct; no hidden counters,
// so IDs are reproducible on replay.
func OrderID(class OrderClass, collection common.Address, tokenID string, height uint64) common.Hash {
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], height)

	buf := make([]byte, 0, 1+common.AddressLength+len(tokenID)+8)
	buf = append(buf, byte(class))
	buf = append(buf, collection.Bytes()...)
	buf = append(buf, tokenID...)
	buf = append(buf, h[:]...)
	return crypto.Keccak256Hash(buf)
}
