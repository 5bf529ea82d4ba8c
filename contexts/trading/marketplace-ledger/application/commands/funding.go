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

	"github.com/shopspring/decimal"
)

// FundingCommand moves value between a principal's external wallet and its
// ledger account.
type FundingCommand struct {
	Caller         string
	Amount         decimal.Decimal
	IdempotencyKey string
}

type FundingResult struct {
	Account  entities.Account
	Replayed bool `json:"-"`
}

type DepositUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (u DepositUseCase) Execute(ctx context.Context, cmd FundingCommand) (FundingResult, error) {
	if err := validateFunding(cmd); err != nil {
		return FundingResult{}, err
	}
	now := resolveNow(u.Clock)

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey,
		hashRequest("deposit", cmd.Caller, cmd.Amount.String()), now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *FundingResult) error {
			account, err := tx.GetAccount(ctx, cmd.Caller)
			if err != nil {
				return err
			}
			account = account.Credit(cmd.Amount, now)
			out.Account = account
			return tx.PutAccount(ctx, account)
		})
	if err != nil {
		return FundingResult{}, err
	}
	result.Replayed = replayed

	application.ResolveLogger(u.Logger).Info("account funded",
		"event", "marketplace_account_deposit",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"principal", cmd.Caller,
		"amount", cmd.Amount.String(),
	)
	return result, nil
}

type WithdrawUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (u WithdrawUseCase) Execute(ctx context.Context, cmd FundingCommand) (FundingResult, error) {
	if err := validateFunding(cmd); err != nil {
		return FundingResult{}, err
	}
	now := resolveNow(u.Clock)

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey,
		hashRequest("withdraw", cmd.Caller, cmd.Amount.String()), now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *FundingResult) error {
			account, err := tx.GetAccount(ctx, cmd.Caller)
			if err != nil {
				return err
			}
			account, err = account.Debit(cmd.Amount, now)
			if err != nil {
				return err
			}
			out.Account = account
			return tx.PutAccount(ctx, account)
		})
	if err != nil {
		application.ResolveLogger(u.Logger).Warn("withdraw rejected",
			"event", "marketplace_account_withdraw_rejected",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"principal", cmd.Caller,
			"error", err.Error(),
		)
		return FundingResult{}, err
	}
	result.Replayed = replayed
	return result, nil
}

func validateFunding(cmd FundingCommand) error {
	if strings.TrimSpace(cmd.Caller) == "" {
		return domainerrors.ErrInvalidPrincipal
	}
	if !cmd.Amount.IsPositive() {
		return domainerrors.ErrInvalidAmount
	}
	return nil
}
