package market

import (
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
)

// Coin is an amount of a single denomination, in base units.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: amount}
}

func (c Coin) String() string {
	return fmt.Sprintf("%d%s", c.Amount, c.Denom)
}

func (c Coin) IsZero() bool { return c.Amount == 0 }

// Validate checks the basic coin invariants: positive amount, known denom.
func (c Coin) Validate() error {
	if c.Denom == "" {
		return ErrValidationf("coin denom is empty")
	}
	if c.Amount == 0 {
		return ErrValidationf("coin amount must be positive")
	}
	return nil
}

// Add returns c + other. Denoms must match; overflow is fatal.
func (c Coin) Add(other Coin) (Coin, error) {
	if c.Denom != other.Denom {
		return Coin{}, ErrValidationf("denom mismatch: %s vs %s", c.Denom, other.Denom)
	}
	sum, err := CheckedAdd(c.Amount, other.Amount)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Denom: c.Denom, Amount: sum}, nil
}

// Sub returns c - other via checked subtraction. Underflow is fatal, never
// silently clamped.
func (c Coin) Sub(other Coin) (Coin, error) {
	if c.Denom != other.Denom {
		return Coin{}, ErrValidationf("denom mismatch: %s vs %s", c.Denom, other.Denom)
	}
	diff, err := CheckedSub(c.Amount, other.Amount)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Denom: c.Denom, Amount: diff}, nil
}

// CheckedAdd adds two amounts, failing with ArithmeticError on overflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticf("add overflow: %d + %d", a, b)
	}
	return sum, nil
}

// CheckedSub subtracts b from a, failing with ArithmeticError on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticf("sub underflow: %d - %d", a, b)
	}
	return diff, nil
}

// Payment is a single settlement directive: pay Amount to Recipient.
type Payment struct {
	Label     string         `json:"label"`
	Recipient common.Address `json:"recipient"`
	Amount    Coin           `json:"amount"`
}
