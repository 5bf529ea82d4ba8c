package queries

import (
	"context"
	"log/slog"
	"strings"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

type GetAssetQuery struct {
	AssetID int64
}

type GetAssetResult struct {
	Asset entities.Asset
}

type GetAssetUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u GetAssetUseCase) Execute(ctx context.Context, query GetAssetQuery) (GetAssetResult, error) {
	asset, err := u.Ledger.GetAsset(ctx, query.AssetID)
	if err != nil {
		application.ResolveLogger(u.Logger).Debug("get asset failed",
			"event", "marketplace_get_asset_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"asset_id", query.AssetID,
			"error", err.Error(),
		)
		return GetAssetResult{}, err
	}
	return GetAssetResult{Asset: asset}, nil
}

type ListAssetsByOwnerQuery struct {
	Owner string
}

type ListAssetsByOwnerResult struct {
	Items []entities.Asset
}

type ListAssetsByOwnerUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u ListAssetsByOwnerUseCase) Execute(ctx context.Context, query ListAssetsByOwnerQuery) (ListAssetsByOwnerResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(query.Owner) == "" {
		return ListAssetsByOwnerResult{}, domainerrors.ErrInvalidPrincipal
	}

	items, err := u.Ledger.ListAssetsByOwner(ctx, query.Owner)
	if err != nil {
		logger.Error("list assets by owner failed",
			"event", "marketplace_list_assets_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"owner", query.Owner,
			"error", err.Error(),
		)
		return ListAssetsByOwnerResult{}, err
	}

	logger.Debug("list assets by owner completed",
		"event", "marketplace_list_assets_completed",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"owner", query.Owner,
		"items_count", len(items),
	)
	return ListAssetsByOwnerResult{Items: items}, nil
}
