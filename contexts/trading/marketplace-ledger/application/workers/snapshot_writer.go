package workers

import (
	"context"
	"log/slog"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

// SnapshotWriter copies the in-memory ledger into durable snapshot storage.
type SnapshotWriter struct {
	Source ports.SnapshotSource
	Store  ports.SnapshotStore
	Logger *slog.Logger
}

func (w SnapshotWriter) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(w.Logger)

	snapshot, err := w.Source.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := w.Store.SaveSnapshot(ctx, snapshot); err != nil {
		logger.Error("ledger snapshot save failed",
			"event", "marketplace_snapshot_save_failed",
			"module", "trading/marketplace-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	logger.Debug("ledger snapshot saved",
		"event", "marketplace_snapshot_saved",
		"module", "trading/marketplace-ledger",
		"layer", "worker",
		"assets", len(snapshot.Assets),
		"listings", len(snapshot.Listings),
		"accounts", len(snapshot.Accounts),
	)
	return nil
}

// RestoreLatest loads the newest snapshot into the ledger, if one exists.
func (w SnapshotWriter) RestoreLatest(ctx context.Context) (bool, error) {
	snapshot, found, err := w.Store.LoadLatestSnapshot(ctx)
	if err != nil || !found {
		return false, err
	}
	if err := w.Source.Restore(ctx, snapshot); err != nil {
		return false, err
	}
	application.ResolveLogger(w.Logger).Info("ledger restored from snapshot",
		"event", "marketplace_snapshot_restored",
		"module", "trading/marketplace-ledger",
		"layer", "worker",
		"taken_at", snapshot.TakenAt,
		"assets", len(snapshot.Assets),
	)
	return true, nil
}
