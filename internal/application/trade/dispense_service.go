package trade

import (
	"context"
	"strings"
	"time"

	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opCreateSale         = "create_sale"
	defaultPaymentMethod = "cash"
)

// DispenseService issues bills at the point of sale
type DispenseService struct {
	engine
	dispenses trade.DispenseRepository
}

// NewDispenseService creates a new DispenseService. dispenses serves reads
// outside a transaction.
func NewDispenseService(scope TransactionScope, dispenses trade.DispenseRepository, numbering Numbering, log *zap.Logger) *DispenseService {
	return &DispenseService{
		engine:    newEngine(scope, numbering, log),
		dispenses: dispenses,
	}
}

// CreateSale validates the request, issues the next bill number, snapshots
// each item's current unit cost onto its line and deducts stock.
//
// A line whose item cannot be found is still sold at zero cost; the result
// carries an UNRESOLVED_ITEM warning for it and no stock moves.
func (s *DispenseService) CreateSale(ctx context.Context, req CreateSaleRequest) (result *SaleResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dispense", "create_sale")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLineCount, len(req.Lines))

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration(ctx, opCreateSale, time.Since(start), err)
		telemetry.RecordError(span, err)
	}()

	inputs := req.toInputs()
	if err := trade.ValidateSale(req.DiscountPercent, inputs); err != nil {
		return nil, err
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	var (
		events   []shared.DomainEvent
		warnings []shared.Warning
		bill     *trade.Dispense
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.now()
		billNumber, err := s.numbering.generator(repos.Counters()).Next(ctx, s.numbering.Bills, now)
		if err != nil {
			return err
		}

		items := newItemResolver(repos.Items())
		resolved := make([]*inventory.InventoryItem, len(inputs))
		lines := make([]trade.DispenseLine, len(inputs))
		warnings = warnings[:0]
		for i, in := range inputs {
			item, err := items.resolve(ctx, in.ItemID, in.Name)
			if err != nil {
				return err
			}
			line := trade.DispenseLine{
				LineNo:       i + 1,
				Name:         strings.TrimSpace(in.Name),
				UnitPrice:    in.UnitPrice,
				Quantity:     in.Quantity,
				CostPerUnit:  decimal.Zero,
				LineDiscount: in.LineDiscount,
			}
			if item == nil {
				warnings = append(warnings, shared.Warning{
					Code:    shared.WarnUnresolvedItem,
					Line:    i + 1,
					Item:    line.Name,
					Message: "item not found in inventory; sold at zero cost and stock not deducted",
				})
			} else {
				line.ItemID = inventory.ResolveID(item)
				line.CostPerUnit = item.CurrentUnitCost()
				if line.Name == "" {
					line.Name = item.Name
				}
			}
			resolved[i] = item
			lines[i] = line
		}

		bill = trade.NewDispense(billNumber, req.CustomerRef, paymentMethod, req.DiscountPercent, lines, now)
		if err := repos.Dispenses().Create(ctx, bill); err != nil {
			return err
		}

		for i, item := range resolved {
			if item == nil {
				continue
			}
			item.Dispense(lines[i].Quantity, lines[i].UnitPrice, billNumber, now)
			if err := items.save(ctx, item); err != nil {
				return err
			}
		}

		sources := []eventSource{bill}
		for _, item := range items.touched() {
			sources = append(sources, item)
		}
		events = drain(sources...)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, opCreateSale, "sale", err)
	}

	s.publish(ctx, events)
	s.metrics.RecordSale(ctx, bill.PaymentMethod, bill.Total)
	s.recordWarnings(ctx, warnings)
	telemetry.SetAttributes(span, telemetry.SpanAttrBillNumber, bill.BillNumber)

	log := logger.FromContext(ctx, s.logger)
	for _, w := range warnings {
		log.Warn("Sale line not linked to inventory",
			zap.String("bill_number", bill.BillNumber),
			zap.Int("line", w.Line),
			zap.String("item", w.Item),
		)
	}
	log.Info("Sale completed",
		zap.String("bill_number", bill.BillNumber),
		zap.String("total", bill.Total.String()),
		zap.String("profit", bill.Profit.String()),
	)

	return &SaleResult{DispenseResponse: ToDispenseResponse(bill), Warnings: warnings}, nil
}

// GetByBillNumber retrieves a bill
func (s *DispenseService) GetByBillNumber(ctx context.Context, billNumber string) (*DispenseResponse, error) {
	bill, err := s.dispenses.FindByBillNumber(ctx, strings.TrimSpace(billNumber))
	if err != nil {
		return nil, err
	}
	resp := ToDispenseResponse(bill)
	return &resp, nil
}
