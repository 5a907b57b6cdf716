// Package integration holds the store sync use cases: the order and product
// walkers, stock push-back, webhook ingest, the per-store sync coordinator
// and store onboarding.
package integration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/telemetry"
)

// Clock returns the current time
type Clock func() time.Time

// SyncDependencies are the collaborators shared by both walkers
type SyncDependencies struct {
	Stores   integration.StoreRepository
	Orders   integration.OrderRepository
	Products integration.ProductRepository
	Settings integration.TenantSettingsRepository
	Clients  integration.ClientProvider
}

// WalkerOption configures a walker
type WalkerOption func(*walkerOptions)

type walkerOptions struct {
	clock    Clock
	pageSize int
}

// WithWalkerClock injects the time source used for the cursor and reports
func WithWalkerClock(clock Clock) WalkerOption {
	return func(o *walkerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithPageSize overrides the page size requested from the platform
func WithPageSize(n int) WalkerOption {
	return func(o *walkerOptions) {
		if n > 0 && n <= integration.DefaultPageSize {
			o.pageSize = n
		}
	}
}

func buildWalkerOptions(opts []WalkerOption) walkerOptions {
	o := walkerOptions{clock: time.Now, pageSize: integration.DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Walker runs one entity sync for one store. The report is never nil; the
// error is set only when the run aborted.
type Walker interface {
	Run(ctx context.Context, store *integration.Store) (*integration.SyncReport, error)
}

// walkPages pulls pages in order until the platform returns an empty page,
// or the last reported page has been handled. Page N+1 is requested only after every record of
// page N went through handle. Per-record failures are handle's business;
// fetch errors and cancellation abort the walk.
func walkPages[T any](
	ctx context.Context,
	report *integration.SyncReport,
	fetch func(ctx context.Context, page int) (*integration.Page[T], error),
	handle func(ctx context.Context, item *T),
) error {
	log := logger.L(ctx)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := fetch(ctx, page)
		if err != nil {
			if integration.IsTransient(err) {
				log.Warn("Platform unavailable, sync will retry on the next run",
					zap.Int("page", page),
					zap.Error(err),
				)
			}
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		if result.Exhausted() {
			break
		}
		report.Pages++

		for i := range result.Items {
			handle(ctx, &result.Items[i])
		}

		log.Debug("Processed page",
			zap.String("entity", report.Entity.String()),
			zap.Int("page", page),
			zap.Int("items_in_page", len(result.Items)),
			zap.Int("processed_so_far", report.Processed),
		)

		if result.TotalPages > 0 && page >= result.TotalPages {
			break
		}
	}
	return nil
}

// finishRun closes the report and its span and logs the summary
func finishRun(ctx context.Context, report *integration.SyncReport, finishedAt time.Time, err error) {
	report.Finish(finishedAt, err)

	log := logger.L(ctx).With(
		zap.String("entity", report.Entity.String()),
		zap.String("status", report.Status.String()),
		zap.Int("pages", report.Pages),
		zap.Int("processed", report.Processed),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration()),
	)
	if err != nil {
		log.Error("Sync run aborted", zap.Error(err))
		return
	}
	log.Info("Sync run finished")
}

func startRunSpan(ctx context.Context, name string, store *integration.Store) (context.Context, func(*integration.SyncReport, error)) {
	ctx, span := telemetry.StartSpan(ctx, name,
		telemetry.Attr(telemetry.SpanAttrTenantID, store.TenantID.String()),
		telemetry.Attr(telemetry.SpanAttrStoreID, store.ID.String()),
	)
	return ctx, func(report *integration.SyncReport, err error) {
		telemetry.SetAttributes(span,
			telemetry.SpanAttrEntity, report.Entity.String(),
			telemetry.SpanAttrPage, report.Pages,
			telemetry.SpanAttrProcessed, report.Processed,
			telemetry.SpanAttrFailed, report.Failed,
		)
		telemetry.EndSpan(span, err)
	}
}
