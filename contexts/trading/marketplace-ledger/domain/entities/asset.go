package entities

import (
	"strings"
	"time"

	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
)

// Asset is one uniquely owned item ("active"). Ids are sequential and never reused.
type Asset struct {
	AssetID    int64
	Owner      string
	CreatedAt  time.Time
	AcquiredAt time.Time
}

func NewAsset(assetID int64, owner string, createdAt time.Time) (Asset, error) {
	if strings.TrimSpace(owner) == "" {
		return Asset{}, domainerrors.ErrInvalidPrincipal
	}
	if assetID < 0 {
		return Asset{}, domainerrors.ErrRepositoryInvariantBroke
	}
	return Asset{
		AssetID:    assetID,
		Owner:      owner,
		CreatedAt:  createdAt.UTC(),
		AcquiredAt: createdAt.UTC(),
	}, nil
}

// TransferTo returns the asset with ownership moved to newOwner.
func (a Asset) TransferTo(newOwner string, at time.Time) Asset {
	a.Owner = newOwner
	a.AcquiredAt = at.UTC()
	return a
}
