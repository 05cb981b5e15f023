package trade

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const opCommitDraft = "commit_draft"

// CommitService books drafts into stock
type CommitService struct {
	engine
}

// NewCommitService creates a new CommitService
func NewCommitService(scope TransactionScope, numbering Numbering, log *zap.Logger) *CommitService {
	return &CommitService{engine: newEngine(scope, numbering, log)}
}

// CommitDraft turns a draft into a purchase. Every named line raises on-hand
// and blends its after-tax unit cost into the item's weighted average; then
// the purchase is written and the draft removed, all in one transaction.
//
// Committing a draft that was already committed returns the stored purchase
// with Replayed set and changes nothing.
func (s *CommitService) CommitDraft(ctx context.Context, draftID uuid.UUID) (result *CommitResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase", "commit_draft")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrDraftID, draftID.String())

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration(ctx, opCommitDraft, time.Since(start), err)
		telemetry.RecordError(span, err)
	}()

	var events []shared.DomainEvent
	err = s.withLock(ctx, draftLockKey(draftID.String()), func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			res, evts, err := s.commit(ctx, repos, draftID)
			if err != nil {
				return err
			}
			result, events = res, evts
			return nil
		})
	})
	if err != nil {
		return nil, s.fail(ctx, opCommitDraft, draftID.String(), err)
	}

	if result.Replayed {
		logger.FromContext(ctx, s.logger).Info("Draft already committed, returning stored purchase",
			zap.String("draft_id", draftID.String()),
			zap.String("purchase_id", result.PurchaseID.String()),
		)
		return result, nil
	}

	s.publish(ctx, events)
	s.metrics.RecordPurchaseCommitted(ctx)
	s.recordWarnings(ctx, result.Warnings)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceNumber, result.InvoiceNumber,
		telemetry.SpanAttrLineCount, len(result.Lines),
	)
	logger.FromContext(ctx, s.logger).Info("Draft committed",
		zap.String("draft_id", draftID.String()),
		zap.String("invoice_number", result.InvoiceNumber),
		zap.Int("lines", len(result.Lines)),
		zap.Int("skipped", len(result.Warnings)),
		zap.String("total_amount", result.TotalAmount.String()),
	)
	return result, nil
}

func (s *CommitService) commit(ctx context.Context, repos TransactionalRepositories, draftID uuid.UUID) (*CommitResult, []shared.DomainEvent, error) {
	draft, err := repos.Drafts().FindByIDForUpdate(ctx, draftID)
	if errors.Is(err, shared.ErrNotFound) {
		// A concurrent commit may have removed the draft a moment ago.
		purchase, perr := repos.Purchases().FindByDraftID(ctx, draftID)
		if perr == nil {
			res := toCommitResult(purchase)
			res.Replayed = true
			return res, nil, nil
		}
		if !errors.Is(perr, shared.ErrNotFound) {
			return nil, nil, perr
		}
		return nil, nil, shared.NewNotFoundError("draft", draftID.String())
	}
	if err != nil {
		return nil, nil, err
	}

	named, warnings := draft.CommittableLines()
	if len(named) == 0 {
		return nil, nil, shared.NewValidationError("draft has no lines with an item name")
	}

	now := s.now()
	invoiceNumber := draft.InvoiceNumber
	if invoiceNumber == "" {
		if invoiceNumber, err = s.numbering.generator(repos.Counters()).Next(ctx, s.numbering.Purchases, now); err != nil {
			return nil, nil, err
		}
	}

	items := newItemResolver(repos.Items())
	lines := make([]trade.PurchaseLine, 0, len(named))
	for _, l := range named {
		item, err := items.obtain(ctx, l.Name, now)
		if err != nil {
			return nil, nil, err
		}
		item.Receive(inventory.Receipt{
			Quantity:         l.TotalItems,
			AfterTaxUnitCost: l.AfterTaxUnitCost,
			UnitsPerPack:     l.UnitsPerPack,
			Packs:            l.Packs,
			BuyPerPack:       l.BuyPerPack,
			BuyPerUnit:       l.BuyPerUnit,
			SalePerPack:      l.SalePerPack,
			SalePerUnit:      l.SalePerUnit,
			GenericName:      l.GenericName,
			Category:         l.Category,
			MinStock:         l.MinStock,
			Supplier:         draft.SupplierName,
			InvoiceNumber:    invoiceNumber,
			Expiry:           l.ExpiryDate,
			ReceivedAt:       now,
		})
		if err := items.save(ctx, item); err != nil {
			return nil, nil, err
		}
		lines = append(lines, trade.PurchaseLine{
			LineNo:      l.LineNo,
			ItemID:      inventory.ResolveID(item),
			InvoiceLine: l.InvoiceLine,
		})
	}

	purchase := trade.NewPurchase(draft, invoiceNumber, lines, now)
	if err := repos.Purchases().Create(ctx, purchase); err != nil {
		return nil, nil, err
	}
	if err := repos.Drafts().Delete(ctx, draft.ID); err != nil {
		return nil, nil, err
	}

	touched := items.touched()
	sources := make([]eventSource, 0, len(touched)+1)
	for _, item := range touched {
		sources = append(sources, item)
	}
	sources = append(sources, purchase)

	res := toCommitResult(purchase)
	res.Items = toItemSnapshots(touched)
	res.Warnings = warnings
	return res, drain(sources...), nil
}
