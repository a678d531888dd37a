package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
)

// failedListLimit bounds how many audit entries one `upload --failed` retries.
const failedListLimit = 10000

func newUploadCmd() *cobra.Command {
	var onlyFailed bool
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Forward records from the records file to the collector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.ServerURL == "" {
				return errors.New("SERVER_URL is required for upload")
			}

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.records.ReadAll(ctx)
			if err != nil {
				return fmt.Errorf("reading %s: %w", a.records.Path(), err)
			}

			if onlyFailed {
				ids, err := a.failedIDs(ctx)
				if err != nil {
					return err
				}
				records, err = collectFailed(ctx, records, ids, a.store)
				if err != nil {
					return err
				}
			}

			slog.Info("Uploading records", "path", a.records.Path(), "count", len(records), "only_failed", onlyFailed)
			summary := a.uploader.ForwardAll(ctx, records)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d records failed to forward", summary.Failed, len(records))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyFailed, "failed", false, "only re-forward records listed in the failed-forward table")
	return cmd
}

// failedIDs lists the record ids awaiting a re-forward, oldest attempt first.
func (a *app) failedIDs(ctx context.Context) ([]string, error) {
	if a.failed == nil {
		return nil, errors.New("--failed requires POSTGRES_URL")
	}
	entries, err := a.failed.List(ctx, failedListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing failed forwards: %w", err)
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.RecordID
	}
	return ids, nil
}

// collectFailed resolves ids to records, preferring the records file and
// falling back to store for ids the file no longer holds. Ids found in
// neither are skipped.
func collectFailed(ctx context.Context, fromFile []entity.Record, ids []string, store repository.RecordRepository) ([]entity.Record, error) {
	byID := make(map[string]entity.Record, len(fromFile))
	for _, rec := range fromFile {
		if _, dup := byID[rec.ID]; !dup {
			byID[rec.ID] = rec
		}
	}

	out := make([]entity.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			continue
		}
		if store == nil {
			slog.Warn("Failed record is missing from the records file", "id", id)
			continue
		}
		rec, err := store.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("Failed record is not stored anywhere", "id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading record %s: %w", id, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}
