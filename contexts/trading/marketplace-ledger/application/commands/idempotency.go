package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

// withIdempotency runs fn inside one ledger transaction. With a non-empty key
// the record lookup, the ledger writes and the stored response commit
// together, so concurrent requests sharing a key apply at most once and the
// rest replay the stored response.
func withIdempotency[T any](
	ctx context.Context,
	ledger ports.LedgerRepository,
	key string,
	requestHash string,
	now time.Time,
	ttl time.Duration,
	fn func(ctx context.Context, tx ports.LedgerTx, out *T) error,
) (T, bool, error) {
	var (
		result   T
		replayed bool
	)
	key = strings.TrimSpace(key)
	err := ledger.WithinTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		if key != "" {
			record, found, err := tx.GetRecord(ctx, key, now)
			if err != nil {
				return err
			}
			if found {
				// A reused idempotency key must map to an identical request payload.
				if record.RequestHash != requestHash {
					return domainerrors.ErrIdempotencyKeyConflict
				}
				if err := json.Unmarshal(record.ResponsePayload, &result); err != nil {
					return fmt.Errorf("decode idempotent response: %w", err)
				}
				replayed = true
				return nil
			}
		}

		if err := fn(ctx, tx, &result); err != nil {
			return err
		}
		if key == "" {
			return nil
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode idempotent response: %w", err)
		}
		if ttl <= 0 {
			ttl = defaultIdempotencyTTL
		}
		return tx.PutRecord(ctx, ports.IdempotencyRecord{
			Key:             key,
			RequestHash:     requestHash,
			ResponsePayload: payload,
			ExpiresAt:       now.Add(ttl),
		})
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return result, replayed, nil
}

func hashRequest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
