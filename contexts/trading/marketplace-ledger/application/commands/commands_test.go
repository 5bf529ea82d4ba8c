package commands

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/adapters/memory"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"
	contractsv1 "bazaar/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type testLedger struct {
	store    *memory.Store
	create   CreateAssetUseCase
	list     ListAssetUseCase
	buy      BuyAssetUseCase
	offer    MakeOfferUseCase
	accept   AcceptOfferUseCase
	deposit  DepositUseCase
	withdraw WithdrawUseCase
}

func newTestLedger() testLedger {
	store := memory.NewStore(nil)
	clock := fixedClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return testLedger{
		store:    store,
		create:   CreateAssetUseCase{Ledger: store, Clock: clock},
		list:     ListAssetUseCase{Ledger: store, Clock: clock},
		buy:      BuyAssetUseCase{Ledger: store, Clock: clock, IDGenerator: store},
		offer:    MakeOfferUseCase{Ledger: store, Clock: clock},
		accept:   AcceptOfferUseCase{Ledger: store, Clock: clock, IDGenerator: store},
		deposit:  DepositUseCase{Ledger: store, Clock: clock},
		withdraw: WithdrawUseCase{Ledger: store, Clock: clock},
	}
}

func amount(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

func (l testLedger) mustCreate(t *testing.T, owner string) int64 {
	t.Helper()
	result, err := l.create.Execute(context.Background(), CreateAssetCommand{Caller: owner})
	if err != nil {
		t.Fatalf("create asset failed: %v", err)
	}
	return result.Asset.AssetID
}

func (l testLedger) mustList(t *testing.T, seller string, assetID int64, price int64) int64 {
	t.Helper()
	result, err := l.list.Execute(context.Background(), ListAssetCommand{Caller: seller, AssetID: assetID, Price: amount(price)})
	if err != nil {
		t.Fatalf("list asset failed: %v", err)
	}
	return result.Listing.ListingID
}

func (l testLedger) mustDeposit(t *testing.T, principal string, value int64) {
	t.Helper()
	if _, err := l.deposit.Execute(context.Background(), FundingCommand{Caller: principal, Amount: amount(value)}); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
}

func (l testLedger) balance(t *testing.T, principal string) decimal.Decimal {
	t.Helper()
	account, err := l.store.GetAccount(context.Background(), principal)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	return account.Balance
}

func TestBuyActiveScenario(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	first := ledger.mustCreate(t, "seller")
	second := ledger.mustCreate(t, "seller")
	if first != 0 || second != 1 {
		t.Fatalf("expected asset ids 0 and 1, got %d and %d", first, second)
	}
	listingID := ledger.mustList(t, "seller", first, 3)
	ledger.mustDeposit(t, "buyer", 10)

	result, err := ledger.buy.Execute(ctx, BuyAssetCommand{Caller: "buyer", ListingID: listingID, Payment: amount(3)})
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if result.Asset.Owner != "buyer" {
		t.Fatalf("expected buyer to own asset, got %s", result.Asset.Owner)
	}
	if !ledger.balance(t, "seller").Equal(amount(3)) {
		t.Fatalf("expected seller balance 3, got %s", ledger.balance(t, "seller"))
	}
	if !ledger.balance(t, "buyer").Equal(amount(7)) {
		t.Fatalf("expected buyer balance 7, got %s", ledger.balance(t, "buyer"))
	}

	sellerAssets, _ := ledger.store.ListAssetsByOwner(ctx, "seller")
	buyerAssets, _ := ledger.store.ListAssetsByOwner(ctx, "buyer")
	if len(sellerAssets) != 1 || len(buyerAssets) != 1 {
		t.Fatalf("expected 1 asset each, got seller=%d buyer=%d", len(sellerAssets), len(buyerAssets))
	}
	if _, err := ledger.store.GetListing(ctx, listingID); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected listing removed, got %v", err)
	}

	events := ledger.store.OutboxEvents()
	if len(events) != 1 || events[0].EventType != contractsv1.EventTypeActiveSold {
		t.Fatalf("expected one active_sold event, got %+v", events)
	}
	var envelope contractsv1.Envelope
	if err := json.Unmarshal(events[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope failed: %v", err)
	}
	var data contractsv1.ActiveSoldData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	if data.Buyer != "buyer" || data.Price != "3" {
		t.Fatalf("unexpected event data %+v", data)
	}
}

func TestBuyRefundsPendingOffer(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 10)
	ledger.mustDeposit(t, "bidder", 4)
	ledger.mustDeposit(t, "buyer", 10)

	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "bidder", ListingID: listingID, Payment: amount(4)}); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	if !ledger.balance(t, "bidder").IsZero() {
		t.Fatalf("expected bidder funds escrowed, got %s", ledger.balance(t, "bidder"))
	}

	result, err := ledger.buy.Execute(ctx, BuyAssetCommand{Caller: "buyer", ListingID: listingID, Payment: amount(10)})
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if result.Refunded == nil || result.Refunded.Initiator != "bidder" {
		t.Fatalf("expected refunded bidder offer, got %+v", result.Refunded)
	}
	if !ledger.balance(t, "bidder").Equal(amount(4)) {
		t.Fatalf("expected bidder refunded 4, got %s", ledger.balance(t, "bidder"))
	}
	if !ledger.balance(t, "seller").Equal(amount(10)) {
		t.Fatalf("expected seller paid 10, got %s", ledger.balance(t, "seller"))
	}
	escrow, _ := ledger.store.GetEscrow(ctx)
	if !escrow.Total.IsZero() || escrow.PendingOffers != 0 {
		t.Fatalf("expected empty escrow, got %+v", escrow)
	}
}

func TestSellerBuyingOwnListingClosesIt(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 3)
	ledger.mustDeposit(t, "seller", 3)
	ledger.mustDeposit(t, "bidder", 2)
	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "bidder", ListingID: listingID, Payment: amount(2)}); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	result, err := ledger.buy.Execute(ctx, BuyAssetCommand{Caller: "seller", ListingID: listingID, Payment: amount(3)})
	if err != nil {
		t.Fatalf("seller buy failed: %v", err)
	}
	if result.Asset.Owner != "seller" {
		t.Fatalf("expected seller to keep the asset, got %s", result.Asset.Owner)
	}
	if !ledger.balance(t, "seller").Equal(amount(3)) {
		t.Fatalf("expected seller balance unchanged at 3, got %s", ledger.balance(t, "seller"))
	}
	if !ledger.balance(t, "bidder").Equal(amount(2)) {
		t.Fatalf("expected bidder refunded 2, got %s", ledger.balance(t, "bidder"))
	}
	if _, err := ledger.store.GetListing(ctx, listingID); !errors.Is(err, domainerrors.ErrListingNotFound) {
		t.Fatalf("expected listing closed, got %v", err)
	}
	owned, _ := ledger.store.ListAssetsByOwner(ctx, "seller")
	if len(owned) != 1 {
		t.Fatalf("expected seller to own one asset, got %d", len(owned))
	}
	escrow, _ := ledger.store.GetEscrow(ctx)
	if !escrow.Total.IsZero() {
		t.Fatalf("expected empty escrow, got %s", escrow.Total)
	}
}

func TestHigherOfferRefundsSupersededOffer(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 10)
	ledger.mustDeposit(t, "alice", 5)
	ledger.mustDeposit(t, "bob", 5)

	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "alice", ListingID: listingID, Payment: amount(2)}); err != nil {
		t.Fatalf("first offer failed: %v", err)
	}
	_, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "bob", ListingID: listingID, Payment: amount(2)})
	if !errors.Is(err, domainerrors.ErrOfferTooLow) {
		t.Fatalf("expected equal offer rejected as too low, got %v", err)
	}

	result, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "bob", ListingID: listingID, Payment: amount(3)})
	if err != nil {
		t.Fatalf("second offer failed: %v", err)
	}
	if result.Superseded == nil || result.Superseded.Initiator != "alice" {
		t.Fatalf("expected alice superseded, got %+v", result.Superseded)
	}
	if !ledger.balance(t, "alice").Equal(amount(5)) {
		t.Fatalf("expected alice fully refunded, got %s", ledger.balance(t, "alice"))
	}
	if !ledger.balance(t, "bob").Equal(amount(2)) {
		t.Fatalf("expected bob balance 2, got %s", ledger.balance(t, "bob"))
	}
	listing, _ := ledger.store.GetListing(ctx, listingID)
	if listing.BestOfferInitiator() != "bob" || !listing.BestOfferAmount().Equal(amount(3)) {
		t.Fatalf("unexpected best offer %+v", listing.BestOffer)
	}
	escrow, _ := ledger.store.GetEscrow(ctx)
	if !escrow.Total.Equal(amount(3)) {
		t.Fatalf("expected escrow 3, got %s", escrow.Total)
	}
}

func TestRaisingOwnOfferCountsEscrowedAmount(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 10)
	ledger.mustDeposit(t, "alice", 5)

	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "alice", ListingID: listingID, Payment: amount(4)}); err != nil {
		t.Fatalf("first offer failed: %v", err)
	}
	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "alice", ListingID: listingID, Payment: amount(5)}); err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if !ledger.balance(t, "alice").IsZero() {
		t.Fatalf("expected alice balance 0, got %s", ledger.balance(t, "alice"))
	}
	_, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "alice", ListingID: listingID, Payment: amount(6)})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestAcceptPaysOfferNotPrice(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 100)
	ledger.mustDeposit(t, "bidder", 30)

	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "bidder", ListingID: listingID, Payment: amount(25)}); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	_, err := ledger.accept.Execute(ctx, AcceptOfferCommand{Caller: "bidder", ListingID: listingID})
	if !errors.Is(err, domainerrors.ErrNotSeller) {
		t.Fatalf("expected not seller, got %v", err)
	}

	result, err := ledger.accept.Execute(ctx, AcceptOfferCommand{Caller: "seller", ListingID: listingID})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if result.Asset.Owner != "bidder" {
		t.Fatalf("expected bidder to own asset, got %s", result.Asset.Owner)
	}
	if !ledger.balance(t, "seller").Equal(amount(25)) {
		t.Fatalf("expected seller paid 25, got %s", ledger.balance(t, "seller"))
	}
	if !ledger.balance(t, "bidder").Equal(amount(5)) {
		t.Fatalf("expected bidder balance 5, got %s", ledger.balance(t, "bidder"))
	}
	escrow, _ := ledger.store.GetEscrow(ctx)
	if !escrow.Total.IsZero() {
		t.Fatalf("expected escrow released, got %s", escrow.Total)
	}
	events := ledger.store.OutboxEvents()
	if len(events) != 1 || events[0].EventType != contractsv1.EventTypeOfferAccepted {
		t.Fatalf("expected one offer_accepted event, got %+v", events)
	}
}

func TestAcceptWithoutOfferFails(t *testing.T) {
	ledger := newTestLedger()
	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 5)

	_, err := ledger.accept.Execute(context.Background(), AcceptOfferCommand{Caller: "seller", ListingID: listingID})
	if !errors.Is(err, domainerrors.ErrNoOffer) {
		t.Fatalf("expected no offer, got %v", err)
	}
}

func TestListRejections(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()
	assetID := ledger.mustCreate(t, "seller")

	_, err := ledger.list.Execute(ctx, ListAssetCommand{Caller: "mallory", AssetID: assetID, Price: amount(5)})
	if !errors.Is(err, domainerrors.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	_, err = ledger.list.Execute(ctx, ListAssetCommand{Caller: "seller", AssetID: assetID, Price: decimal.Zero})
	if !errors.Is(err, domainerrors.ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	_, err = ledger.list.Execute(ctx, ListAssetCommand{Caller: "seller", AssetID: 42, Price: amount(5)})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	ledger.mustList(t, "seller", assetID, 5)
	_, err = ledger.list.Execute(ctx, ListAssetCommand{Caller: "seller", AssetID: assetID, Price: amount(6)})
	if !errors.Is(err, domainerrors.ErrAlreadyListed) {
		t.Fatalf("expected already listed, got %v", err)
	}
}

func TestRelistAfterSaleStartsWithoutOffer(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	first := ledger.mustList(t, "seller", assetID, 5)
	ledger.mustDeposit(t, "buyer", 5)
	if _, err := ledger.buy.Execute(ctx, BuyAssetCommand{Caller: "buyer", ListingID: first, Payment: amount(5)}); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	second := ledger.mustList(t, "buyer", assetID, 8)
	if second == first {
		t.Fatalf("expected a fresh listing id, got %d again", second)
	}
	listing, _ := ledger.store.GetListing(ctx, second)
	if listing.HasOffer() || listing.Seller != "buyer" {
		t.Fatalf("unexpected relisted state %+v", listing)
	}
}

func TestWrongPaymentLeavesStateUntouched(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 3)
	ledger.mustDeposit(t, "bidder", 2)
	ledger.mustDeposit(t, "buyer", 10)
	if _, err := ledger.offer.Execute(ctx, MakeOfferCommand{Caller: "bidder", ListingID: listingID, Payment: amount(2)}); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	before, _ := ledger.store.Snapshot(ctx)

	_, err := ledger.buy.Execute(ctx, BuyAssetCommand{Caller: "buyer", ListingID: listingID, Payment: amount(4)})
	if !errors.Is(err, domainerrors.ErrWrongPayment) {
		t.Fatalf("expected wrong payment, got %v", err)
	}
	_, err = ledger.buy.Execute(ctx, BuyAssetCommand{Caller: "broke", ListingID: listingID, Payment: amount(3)})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	after, _ := ledger.store.Snapshot(ctx)
	assertSameLedger(t, before, after)
}

func TestWithdrawRejectsOverdraft(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()
	ledger.mustDeposit(t, "alice", 3)

	_, err := ledger.withdraw.Execute(ctx, FundingCommand{Caller: "alice", Amount: amount(4)})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	result, err := ledger.withdraw.Execute(ctx, FundingCommand{Caller: "alice", Amount: amount(3)})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if !result.Account.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", result.Account.Balance)
	}
	_, err = ledger.deposit.Execute(ctx, FundingCommand{Caller: "alice", Amount: amount(-1)})
	if !errors.Is(err, domainerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestIdempotentReplayReturnsSameAsset(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	first, err := ledger.create.Execute(ctx, CreateAssetCommand{Caller: "alice", IdempotencyKey: "idem-create-1"})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := ledger.create.Execute(ctx, CreateAssetCommand{Caller: "alice", IdempotencyKey: "idem-create-1"})
	if err != nil {
		t.Fatalf("replayed create failed: %v", err)
	}
	if !second.Replayed || second.Asset.AssetID != first.Asset.AssetID {
		t.Fatalf("expected replay of asset %d, got %+v", first.Asset.AssetID, second)
	}
	owned, _ := ledger.store.ListAssetsByOwner(ctx, "alice")
	if len(owned) != 1 {
		t.Fatalf("expected a single asset, got %d", len(owned))
	}

	_, err = ledger.create.Execute(ctx, CreateAssetCommand{Caller: "bob", IdempotencyKey: "idem-create-1"})
	if !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestIdempotentReplayOfOfferKeepsEscrow(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	assetID := ledger.mustCreate(t, "seller")
	listingID := ledger.mustList(t, "seller", assetID, 10)
	ledger.mustDeposit(t, "alice", 9)

	cmd := MakeOfferCommand{Caller: "alice", ListingID: listingID, Payment: amount(4), IdempotencyKey: "idem-offer-1"}
	if _, err := ledger.offer.Execute(ctx, cmd); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	replay, err := ledger.offer.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Replayed || replay.Listing.BestOfferInitiator() != "alice" {
		t.Fatalf("unexpected replay %+v", replay)
	}
	if !ledger.balance(t, "alice").Equal(amount(5)) {
		t.Fatalf("expected single debit, balance %s", ledger.balance(t, "alice"))
	}
}

// slowRecordLedger delays every idempotency lookup to widen the window
// between reading a key and storing its response.
type slowRecordLedger struct {
	ports.LedgerRepository
}

func (l slowRecordLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	return l.LedgerRepository.WithinTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		return fn(ctx, slowRecordTx{LedgerTx: tx})
	})
}

type slowRecordTx struct {
	ports.LedgerTx
}

func (t slowRecordTx) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	time.Sleep(2 * time.Millisecond)
	return t.LedgerTx.GetRecord(ctx, key, now)
}

func TestConcurrentDepositsWithOneKeyCreditOnce(t *testing.T) {
	ledger := newTestLedger()
	deposit := DepositUseCase{
		Ledger: slowRecordLedger{LedgerRepository: ledger.store},
		Clock:  ledger.deposit.Clock,
	}
	cmd := FundingCommand{Caller: "alice", Amount: amount(10), IdempotencyKey: "dep-1"}

	const workers = 4
	results := make(chan FundingResult, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := deposit.Execute(context.Background(), cmd)
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("deposit failed: %v", err)
	}
	applied := 0
	for result := range results {
		if !result.Replayed {
			applied++
		}
		if !result.Account.Balance.Equal(amount(10)) {
			t.Fatalf("expected every response to report balance 10, got %s", result.Account.Balance)
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied deposit, got %d", applied)
	}
	if got := ledger.balance(t, "alice"); !got.Equal(amount(10)) {
		t.Fatalf("alice balance after %d concurrent deposits with one key: %s", workers, got)
	}
}
