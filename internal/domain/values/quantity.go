package values

import (
	"errors"
	"fmt"
)

const (
	MaxCartLineQuantity  = 100
	MaxOrderLineQuantity = 1000
)

var ErrQuantityOutOfRange = errors.New("quantity out of range")

// Quantity is a bounded, strictly positive item count.
type Quantity int

func NewQuantity(n, max int) (Quantity, error) {
	if n < 1 || n > max {
		return 0, fmt.Errorf("%w: %d not in 1..%d", ErrQuantityOutOfRange, n, max)
	}
	return Quantity(n), nil
}

func CartQuantity(n int) (Quantity, error)  { return NewQuantity(n, MaxCartLineQuantity) }
func OrderQuantity(n int) (Quantity, error) { return NewQuantity(n, MaxOrderLineQuantity) }

func (q Quantity) Int() int { return int(q) }
