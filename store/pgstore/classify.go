package pgstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openshelf/reviewloader/store"
)

// SQLSTATE codes handled explicitly.
const (
	pgErrForeignKeyViolation  = "23503"
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrCannotConnectNow     = "57P03"
	pgErrTooManyConnections   = "53300"
	pgErrConnectionClassPfx   = "08"
)

// classify wraps a store failure with the retry class the worker loop keys
// on: ErrTransient for failures where retrying the same batch may succeed,
// ErrFatal for everything retrying cannot fix.
//
// Context cancellation passes through unwrapped so callers can tell an
// external stop from a store failure; deadline expiry is transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", store.ErrTransient, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, pgErrConnectionClassPfx):
			return fmt.Errorf("%w: %v", store.ErrTransient, err)
		case pgErr.Code == pgErrSerializationFailure,
			pgErr.Code == pgErrDeadlockDetected,
			pgErr.Code == pgErrCannotConnectNow,
			pgErr.Code == pgErrTooManyConnections:
			return fmt.Errorf("%w: %v", store.ErrTransient, err)
		default:
			// Schema, permission and constraint problems retry cannot fix.
			return fmt.Errorf("%w: %v", store.ErrFatal, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", store.ErrTransient, err)
	}

	// pgx reports broken connections with plain errors ("conn closed");
	// treat unrecognized failures as transient so a flaky link is retried.
	return fmt.Errorf("%w: %v", store.ErrTransient, err)
}
