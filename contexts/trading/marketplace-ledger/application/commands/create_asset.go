package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

type CreateAssetCommand struct {
	Caller         string
	IdempotencyKey string
}

type CreateAssetResult struct {
	Asset    entities.Asset
	Replayed bool `json:"-"`
}

type CreateAssetUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute registers a new asset owned by the caller. It has no preconditions
// beyond a non-empty principal.
func (u CreateAssetUseCase) Execute(ctx context.Context, cmd CreateAssetCommand) (CreateAssetResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.Caller) == "" {
		return CreateAssetResult{}, domainerrors.ErrInvalidPrincipal
	}
	now := resolveNow(u.Clock)

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey,
		hashRequest("create_asset", cmd.Caller), now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *CreateAssetResult) error {
			assetID, err := tx.NextAssetID(ctx)
			if err != nil {
				return err
			}
			asset, err := entities.NewAsset(assetID, cmd.Caller, now)
			if err != nil {
				return err
			}
			if err := tx.PutAsset(ctx, asset); err != nil {
				return err
			}
			out.Asset = asset
			return nil
		})
	if err != nil {
		logger.Error("create asset failed",
			"event", "marketplace_create_asset_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"caller", cmd.Caller,
			"error", err.Error(),
		)
		return CreateAssetResult{}, err
	}
	result.Replayed = replayed

	logger.Info("asset created",
		"event", "marketplace_asset_created",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"asset_id", result.Asset.AssetID,
		"owner", result.Asset.Owner,
		"replayed", replayed,
	)
	return result, nil
}
