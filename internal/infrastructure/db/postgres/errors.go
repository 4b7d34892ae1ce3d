package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"media-portfolio-api/internal/domain/media"
)

const (
	uniqueViolation = "23505"
	// class 08 is "connection exception"
	connectionExceptionClass = "08"
)

func IsPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Classify marks errors that mean the database could not be reached with
// media.ErrUnavailable. Statement level errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == connectionExceptionClass {
			return fmt.Errorf("%w: %w", media.ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if pgconn.SafeToRetry(err) ||
		errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", media.ErrUnavailable, err)
	}

	return err
}
