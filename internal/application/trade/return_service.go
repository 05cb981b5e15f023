package trade

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const opCreateReturn = "create_return"

// ReturnService records customer, supplier and manual returns
type ReturnService struct {
	engine
	returns trade.ReturnRepository
}

// NewReturnService creates a new ReturnService. returns serves reads outside
// a transaction.
func NewReturnService(scope TransactionScope, returns trade.ReturnRepository, numbering Numbering, log *zap.Logger) *ReturnService {
	return &ReturnService{
		engine:  newEngine(scope, numbering, log),
		returns: returns,
	}
}

// returnPlan is what one return changed before its document is written
type returnPlan struct {
	reversed     []trade.ReversedLine
	counterparty string
	originalID   *uuid.UUID
	original     *OriginalSummary
	warnings     []shared.Warning
	sources      []eventSource
}

// CreateReturn reverses part of an original document.
//
// A customer return takes quantities off the bill, recomputes its totals and
// profit from the captured costs and puts the units back on hand. A supplier
// return takes quantities off the purchase and out of stock without touching
// the average cost. A manual return only writes the return document.
//
// Every request line is matched and checked against what remains on the
// original before anything is changed. With an IdempotencyKey, a repeated
// request returns the stored document with Replayed set.
func (s *ReturnService) CreateReturn(ctx context.Context, req CreateReturnRequest) (result *ReturnResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "return", "create")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration(ctx, opCreateReturn, time.Since(start), err)
		telemetry.RecordError(span, err)
	}()

	typ, err := trade.ParseReturnType(req.Type)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.Reference)
	if typ != trade.ReturnManual && reference == "" {
		return nil, shared.NewValidationError("%s return requires a reference", typ)
	}
	if len(req.Lines) == 0 {
		return nil, shared.NewValidationError("return has no lines")
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReturnType, string(typ),
		telemetry.SpanAttrReference, reference,
	)

	lockRef := reference
	if typ == trade.ReturnManual {
		lockRef = req.IdempotencyKey
	}

	var events []shared.DomainEvent
	run := func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			res, evts, err := s.record(ctx, repos, typ, reference, req)
			if err != nil {
				return err
			}
			result, events = res, evts
			return nil
		})
	}
	if lockRef != "" {
		err = s.withLock(ctx, returnLockKey(string(typ), lockRef), run)
	} else {
		err = run()
	}
	if err != nil {
		return nil, s.fail(ctx, opCreateReturn, string(typ)+":"+reference, err)
	}

	log := logger.FromContext(ctx, s.logger)
	if result.Replayed {
		log.Info("Return already recorded for idempotency key",
			zap.String("return_number", result.ReturnNumber),
		)
		return result, nil
	}

	s.publish(ctx, events)
	s.metrics.RecordReturn(ctx, string(typ))
	s.recordWarnings(ctx, result.Warnings)
	if typ == trade.ReturnManual {
		log.Warn("Manual return recorded without stock or ledger changes",
			zap.String("return_number", result.ReturnNumber),
			zap.String("reference", reference),
			zap.String("total_value", result.TotalValue.String()),
		)
	}
	log.Info("Return recorded",
		zap.String("return_number", result.ReturnNumber),
		zap.String("type", string(typ)),
		zap.String("reference", reference),
		zap.String("total_value", result.TotalValue.String()),
	)
	return result, nil
}

func (s *ReturnService) record(ctx context.Context, repos TransactionalRepositories, typ trade.ReturnType, reference string, req CreateReturnRequest) (*ReturnResult, []shared.DomainEvent, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := repos.Returns().FindByIdempotencyKey(ctx, key)
		if err == nil {
			res := toReturnResult(existing)
			res.Replayed = true
			return res, nil, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, nil, err
		}
	}

	now := s.now()
	reqs := req.toRequests()
	var (
		plan *returnPlan
		err  error
	)
	switch typ {
	case trade.ReturnCustomer:
		plan, err = s.customerReturn(ctx, repos, reference, reqs, now)
	case trade.ReturnSupplier:
		plan, err = s.supplierReturn(ctx, repos, reference, strings.TrimSpace(req.Counterparty), reqs, now)
	default:
		plan, err = s.manualReturn(reqs)
	}
	if err != nil {
		return nil, nil, err
	}
	if req.Counterparty != "" {
		plan.counterparty = req.Counterparty
	}

	number, err := s.numbering.generator(repos.Counters()).Next(ctx, s.numbering.Returns, now)
	if err != nil {
		return nil, nil, err
	}
	entry := trade.NewReturnEntry(number, typ, reference, plan.counterparty, plan.originalID, plan.reversed, now)
	entry.IdempotencyKey = key
	if err := repos.Returns().Create(ctx, entry); err != nil {
		return nil, nil, err
	}

	res := toReturnResult(entry)
	res.Original = plan.original
	res.Warnings = plan.warnings
	return res, drain(append(plan.sources, entry)...), nil
}

func (s *ReturnService) customerReturn(ctx context.Context, repos TransactionalRepositories, billNumber string, reqs []trade.ReturnLineRequest, now time.Time) (*returnPlan, error) {
	bill, err := repos.Dispenses().FindByBillNumberForUpdate(ctx, billNumber)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewNotFoundError("bill", billNumber)
	}
	if err != nil {
		return nil, err
	}

	reversed, err := bill.ApplyCustomerReturn(reqs, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Dispenses().SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	plan := &returnPlan{
		reversed:     reversed,
		counterparty: bill.CustomerRef,
		originalID:   &bill.ID,
		original:     dispenseSummary(bill),
	}
	if err := s.moveStock(ctx, repos, plan, func(item *inventory.InventoryItem, qty decimal.Decimal) {
		item.Restock(qty, billNumber, now)
	}); err != nil {
		return nil, err
	}
	plan.sources = append(plan.sources, bill)
	return plan, nil
}

func (s *ReturnService) supplierReturn(ctx context.Context, repos TransactionalRepositories, invoiceNumber, supplier string, reqs []trade.ReturnLineRequest, now time.Time) (*returnPlan, error) {
	purchase, err := repos.Purchases().FindByInvoiceNumberForUpdate(ctx, invoiceNumber, supplier)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewNotFoundError("purchase", invoiceNumber)
	}
	if err != nil {
		return nil, err
	}

	reversed, err := purchase.ApplySupplierReturn(reqs, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Purchases().SaveWithLock(ctx, purchase); err != nil {
		return nil, err
	}

	plan := &returnPlan{
		reversed:     reversed,
		counterparty: purchase.SupplierName,
		originalID:   &purchase.ID,
		original:     purchaseSummary(purchase),
	}
	if err := s.moveStock(ctx, repos, plan, func(item *inventory.InventoryItem, qty decimal.Decimal) {
		item.ReturnToSupplier(qty, invoiceNumber, now)
	}); err != nil {
		return nil, err
	}
	plan.sources = append(plan.sources, purchase)
	return plan, nil
}

func (s *ReturnService) manualReturn(reqs []trade.ReturnLineRequest) (*returnPlan, error) {
	reversed, err := trade.ManualReversal(reqs)
	if err != nil {
		return nil, err
	}
	return &returnPlan{
		reversed: reversed,
		warnings: []shared.Warning{{
			Code:    shared.WarnManualReturn,
			Message: "no original document linked; stock and ledgers were not changed",
		}},
	}, nil
}

// moveStock applies apply to the inventory item of every reversed line. A
// line whose item no longer resolves is reported and skipped.
func (s *ReturnService) moveStock(ctx context.Context, repos TransactionalRepositories, plan *returnPlan, apply func(*inventory.InventoryItem, decimal.Decimal)) error {
	items := newItemResolver(repos.Items())
	for _, l := range plan.reversed {
		item, err := items.resolve(ctx, l.ItemID, l.Name)
		if err != nil {
			return err
		}
		if item == nil {
			plan.warnings = append(plan.warnings, shared.Warning{
				Code:    shared.WarnUnresolvedItem,
				Line:    l.LineNo,
				Item:    l.Name,
				Message: "item not found in inventory; stock not adjusted",
			})
			continue
		}
		apply(item, l.Quantity)
		if err := items.save(ctx, item); err != nil {
			return err
		}
	}
	for _, item := range items.touched() {
		plan.sources = append(plan.sources, item)
	}
	return nil
}

// GetByID retrieves a return document
func (s *ReturnService) GetByID(ctx context.Context, id uuid.UUID) (*ReturnResult, error) {
	entry, err := s.returns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReturnResult(entry), nil
}

// ListByReference returns every return recorded against a bill or invoice
func (s *ReturnService) ListByReference(ctx context.Context, reference string) ([]ReturnResult, error) {
	entries, err := s.returns.ListByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, err
	}
	out := make([]ReturnResult, len(entries))
	for i := range entries {
		out[i] = *toReturnResult(&entries[i])
	}
	return out, nil
}
