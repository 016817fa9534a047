package orderbook

import "errors"

var (
	ErrInvalidOrder = errors.New("invalid order")

	// ErrBookUnavailable is returned when matching panicked on a book, now or
	// during an earlier order. The book is closed for good and no trades of the
	// failed order were reported, so the order was not accepted.
	ErrBookUnavailable = errors.New("order book unavailable")
)

// IsRetryable reports whether the caller may resubmit the same order later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBookUnavailable)
}
