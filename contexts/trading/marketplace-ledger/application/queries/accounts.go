package queries

import (
	"context"
	"log/slog"
	"strings"

	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

type GetAccountQuery struct {
	Principal string
}

type GetAccountResult struct {
	Account entities.Account
}

type GetAccountUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

// Execute returns a zero balance for principals the ledger has never seen.
func (u GetAccountUseCase) Execute(ctx context.Context, query GetAccountQuery) (GetAccountResult, error) {
	if strings.TrimSpace(query.Principal) == "" {
		return GetAccountResult{}, domainerrors.ErrInvalidPrincipal
	}
	account, err := u.Ledger.GetAccount(ctx, query.Principal)
	if err != nil {
		return GetAccountResult{}, err
	}
	return GetAccountResult{Account: account}, nil
}

type GetEscrowResult struct {
	Escrow entities.EscrowSummary
}

type GetEscrowUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u GetEscrowUseCase) Execute(ctx context.Context) (GetEscrowResult, error) {
	summary, err := u.Ledger.GetEscrow(ctx)
	if err != nil {
		return GetEscrowResult{}, err
	}
	return GetEscrowResult{Escrow: summary}, nil
}
