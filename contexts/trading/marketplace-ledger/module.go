package marketplaceledger

import (
	"log/slog"
	"time"

	httpadapter "bazaar/contexts/trading/marketplace-ledger/adapters/http"
	"bazaar/contexts/trading/marketplace-ledger/adapters/memory"
	"bazaar/contexts/trading/marketplace-ledger/application/commands"
	"bazaar/contexts/trading/marketplace-ledger/application/queries"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

// Module is the composition surface for the marketplace ledger.
// Runtime wiring should consume Handler; Store is set only by NewInMemoryModule.
type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// NewModule wires the ledger use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	handler := httpadapter.Handler{
		CreateAsset: commands.CreateAssetUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		ListAsset: commands.ListAssetUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		BuyAsset: commands.BuyAssetUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		MakeOffer: commands.MakeOfferUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		AcceptOffer: commands.AcceptOfferUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		Deposit: commands.DepositUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		Withdraw: commands.WithdrawUseCase{
			Ledger:         deps.Ledger,
			Clock:          deps.Clock,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		GetAsset:          queries.GetAssetUseCase{Ledger: deps.Ledger, Logger: deps.Logger},
		ListAssetsByOwner: queries.ListAssetsByOwnerUseCase{Ledger: deps.Ledger, Logger: deps.Logger},
		GetListing:        queries.GetListingUseCase{Ledger: deps.Ledger, Logger: deps.Logger},
		ListListings:      queries.ListListingsBySellerUseCase{Ledger: deps.Ledger, Logger: deps.Logger},
		GetAccount:        queries.GetAccountUseCase{Ledger: deps.Ledger, Logger: deps.Logger},
		GetEscrow:         queries.GetEscrowUseCase{Ledger: deps.Ledger, Logger: deps.Logger},
		Logger:            deps.Logger,
	}
	return Module{Handler: handler}
}

// NewInMemoryModule wires the use cases against the in-memory ledger.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	module := NewModule(Dependencies{
		Ledger:         store,
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
