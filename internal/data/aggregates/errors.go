package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/cart"
	"github.com/yungbote/storefront-backend/internal/domain/inventory"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates optimistic/concurrency conflict.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
)

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// InvariantError tags an error as invariant violation.
func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as retryable failure.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError maps domain and infrastructure failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}

	if mapped := mapDomainError(op, err); mapped != nil {
		return mapped
	}

	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrInvariant):
		return domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "23514":
			return domainagg.Wrap(domainagg.CodeInvariantViolation, op, err) // check_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

func mapDomainError(op string, err error) error {
	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		oos := &domainagg.OutOfStockError{
			ProductID:   stockErr.ProductID,
			ProductName: stockErr.ProductName,
			Requested:   stockErr.Requested,
			Available:   stockErr.Available,
		}
		return domainagg.NewError(domainagg.CodeOutOfStock, op, oos.Error(), oos)
	}
	var oosErr *domainagg.OutOfStockError
	if errors.As(err, &oosErr) {
		return domainagg.NewError(domainagg.CodeOutOfStock, op, oosErr.Error(), oosErr)
	}
	var transErr *order.TransitionError
	if errors.As(err, &transErr) {
		return domainagg.Wrap(domainagg.CodeInvalidTransition, op, err)
	}
	var stateErr *payment.StateError
	if errors.As(err, &stateErr) {
		return domainagg.Wrap(domainagg.CodeInvalidTransition, op, err)
	}
	switch {
	case errors.Is(err, order.ErrNotCancellable):
		return domainagg.Wrap(domainagg.CodeInvalidTransition, op, err)
	case errors.Is(err, order.ErrNoLines):
		return domainagg.Wrap(domainagg.CodeEmptyCart, op, err)
	case errors.Is(err, cart.ErrLineNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, payment.ErrRefundExceedsRemaining),
		errors.Is(err, payment.ErrNonPositiveAmount),
		errors.Is(err, payment.ErrCurrencyMismatch),
		errors.Is(err, cart.ErrMixedCurrency),
		errors.Is(err, cart.ErrMissingProduct),
		errors.Is(err, order.ErrMixedCurrency),
		errors.Is(err, order.ErrMissingOwner),
		errors.Is(err, values.ErrCurrencyMismatch),
		errors.Is(err, values.ErrQuantityOutOfRange),
		errors.Is(err, values.ErrInvalidCurrency),
		errors.Is(err, values.ErrNegativeAmount),
		errors.Is(err, inventory.ErrNonPositiveQuantity):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	return nil
}
