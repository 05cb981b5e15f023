package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DraftService edits purchase drafts. Nothing here touches stock.
type DraftService struct {
	drafts trade.DraftRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewDraftService creates a new DraftService
func NewDraftService(drafts trade.DraftRepository, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{drafts: drafts, logger: logger, now: time.Now}
}

// SetClock replaces the time source
func (s *DraftService) SetClock(now func() time.Time) {
	s.now = now
}

// Preview computes invoice totals without storing anything
func (s *DraftService) Preview(ctx context.Context, req SaveDraftRequest) (*InvoicePreview, error) {
	draft, err := trade.NewDraft(req.toInput(), s.now())
	if err != nil {
		return nil, err
	}
	return &InvoicePreview{
		Lines:       draft.Lines,
		Totals:      draft.Totals,
		TotalAmount: draft.TotalAmount(),
	}, nil
}

// Create stores a new draft
func (s *DraftService) Create(ctx context.Context, req SaveDraftRequest) (*DraftResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "draft", "create")
	defer span.End()

	draft, err := trade.NewDraft(req.toInput(), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Debug("Draft created",
		zap.String("draft_id", draft.ID.String()),
		zap.Int("lines", len(draft.Lines)),
	)
	resp := ToDraftResponse(draft)
	return &resp, nil
}

// Update replaces the contents of an existing draft
func (s *DraftService) Update(ctx context.Context, id uuid.UUID, req SaveDraftRequest) (*DraftResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "draft", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrDraftID, id.String())

	draft, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != draft.Version {
		return nil, shared.ErrConcurrencyConflict
	}
	if err := draft.Update(req.toInput(), s.now()); err != nil {
		return nil, err
	}
	if err := s.drafts.SaveWithLock(ctx, draft); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToDraftResponse(draft)
	return &resp, nil
}

// GetByID retrieves a draft
func (s *DraftService) GetByID(ctx context.Context, id uuid.UUID) (*DraftResponse, error) {
	draft, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDraftResponse(draft)
	return &resp, nil
}

// List returns a page of drafts, most recently updated first
func (s *DraftService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[DraftResponse], error) {
	filter = filter.Normalize()
	drafts, total, err := s.drafts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]DraftResponse, len(drafts))
	for i := range drafts {
		items[i] = ToDraftResponse(&drafts[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Delete discards a draft
func (s *DraftService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.drafts.FindByID(ctx, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}
