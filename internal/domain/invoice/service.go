package invoice

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/numerator"
	"scrapdesk/internal/core/tx"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/audit"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/domain/registers/stock"
	"scrapdesk/pkg/logger"
)

// EntityType is the audit entity name of invoices.
const EntityType = "invoice"

const historyLimit = 100

// Service runs the invoice mutation protocol.
//
// Every create and update is one transaction: the invoice row, every stock
// increment, the sequence bump and the audit entry commit together or not
// at all. Stock only ever moves by stock = stock + delta.
type Service struct {
	repo      Repository
	materials MaterialReader
	stock     stock.Ledger
	numerator numerator.Generator
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*Invoice]
	tracer    trace.Tracer
}

// NewService creates a new invoice service. recorder may be nil.
func NewService(
	repo Repository,
	materials MaterialReader,
	ledger stock.Ledger,
	numerator numerator.Generator,
	txManager tx.Manager,
	recorder audit.Recorder,
) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		materials: materials,
		stock:     ledger,
		numerator: numerator,
		txManager: txManager,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*Invoice](),
		tracer:    otel.Tracer("scrapdesk/invoice"),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Invoice] {
	return s.hooks
}

// Create validates, numbers and stores a new invoice and moves stock by
// its lines.
func (s *Service) Create(ctx context.Context, kind Kind, h Header, items []LineItemInput) (inv *Invoice, err error) {
	ctx, span := s.tracer.Start(ctx, "invoice.Create",
		trace.WithAttributes(attribute.String("invoice.kind", string(kind))))
	defer func() { endSpan(span, err) }()

	if !kind.Valid() {
		return nil, apperror.NewValidation("invalid invoice kind").WithDetail("field", "kind")
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	h.Normalize()
	inv = NewInvoice(kind, h)
	audit.EnrichCreatedByDirect(ctx, &inv.CreatedBy, &inv.UpdatedBy)

	if err := s.hooks.Run(ctx, domain.BeforeCreate, inv); err != nil {
		return nil, err
	}
	if err := inv.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		next, deltas, err := s.prepare(ctx, kind, nil, items)
		if err != nil {
			return err
		}
		inv.Items = next
		inv.Total = Total(next)

		number, err := s.numerator.Next(ctx, kind.Sequence())
		if err != nil {
			return fmt.Errorf("next number: %w", err)
		}
		inv.Number = number

		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := s.applyDeltas(ctx, inv, deltas); err != nil {
			return err
		}
		if err := s.record(ctx, inv, audit.ActionCreate, nil, deltas); err != nil {
			return err
		}
		inv.AppliedDeltas = deltas
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, inv); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	span.SetAttributes(attribute.Int64("invoice.number", inv.Number))
	logger.Info(ctx, "invoice created",
		"kind", kind,
		"id", inv.ID,
		"number", inv.Number,
		"total", inv.Total.String(),
		"stock_deltas", len(inv.AppliedDeltas))

	return inv, nil
}

// Update replaces the header and lines of an invoice and moves stock by
// the net difference between the stored lines and the new ones. Re-sending
// the stored lines is a zero-delta update that only rewrites the header.
func (s *Service) Update(ctx context.Context, kind Kind, invoiceID id.ID, h Header, items []LineItemInput) (inv *Invoice, err error) {
	ctx, span := s.tracer.Start(ctx, "invoice.Update",
		trace.WithAttributes(
			attribute.String("invoice.kind", string(kind)),
			attribute.String("invoice.id", invoiceID.String())))
	defer func() { endSpan(span, err) }()

	if !kind.Valid() {
		return nil, apperror.NewValidation("invalid invoice kind").WithDetail("field", "kind")
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetByID(ctx, kind, invoiceID)
		if err != nil {
			return err
		}
		previous := stored.Items

		stored.applyHeader(h)
		audit.EnrichUpdatedByDirect(ctx, &stored.UpdatedBy)
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, stored); err != nil {
			return err
		}
		if err := stored.Validate(ctx); err != nil {
			return err
		}

		next, deltas, err := s.prepare(ctx, kind, previous, items)
		if err != nil {
			return err
		}
		stored.Items = next
		stored.Total = Total(next)

		if err := s.repo.Update(ctx, stored); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if err := s.applyDeltas(ctx, stored, deltas); err != nil {
			return err
		}
		if err := s.record(ctx, stored, audit.ActionUpdate, previous, deltas); err != nil {
			return err
		}
		stored.AppliedDeltas = deltas
		inv = stored
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, inv); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}

	logger.Info(ctx, "invoice updated",
		"kind", kind,
		"id", inv.ID,
		"number", inv.Number,
		"version", inv.Version,
		"stock_deltas", len(inv.AppliedDeltas))

	return inv, nil
}

// GetByID retrieves an invoice of the given kind.
func (s *Service) GetByID(ctx context.Context, kind Kind, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, kind, invoiceID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return inv, nil
}

// List returns a page of invoices, newest number first.
func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) (domain.ListResult[*Invoice], error) {
	filter.Normalize()
	res, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return res, apperror.Wrap(err)
	}
	return res, nil
}

// ListLines returns every invoice matching filter with its lines, for export.
func (s *Service) ListLines(ctx context.Context, kind Kind, filter ListFilter) ([]*Invoice, error) {
	items, err := s.repo.ListLines(ctx, kind, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

// NextNumber returns the number the next created invoice of kind would get.
func (s *Service) NextNumber(ctx context.Context, kind Kind) (int64, error) {
	n, err := s.numerator.Peek(ctx, kind.Sequence())
	if err != nil {
		return 0, apperror.Wrap(fmt.Errorf("peek number: %w", err))
	}
	return n, nil
}

// History returns the audit entries of an invoice, newest first.
func (s *Service) History(ctx context.Context, kind Kind, invoiceID id.ID) ([]audit.StoredEntry, error) {
	if _, err := s.GetByID(ctx, kind, invoiceID); err != nil {
		return nil, err
	}
	entries, err := s.audit.History(ctx, EntityType, invoiceID, historyLimit)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("load history: %w", err))
	}
	return entries, nil
}

// prepare builds the new lines, computes the deltas against previous,
// denormalizes material name and code, and runs the sale oversell guard.
func (s *Service) prepare(ctx context.Context, kind Kind, previous []LineItem, inputs []LineItemInput) ([]LineItem, Deltas, error) {
	next := make([]LineItem, len(inputs))
	for i, in := range inputs {
		lineID := id.New()
		if in.LineID != nil && !id.IsNil(*in.LineID) {
			lineID = *in.LineID
		}
		next[i] = LineItem{
			LineID:     lineID,
			MaterialID: in.MaterialID,
			Weight:     in.Weight,
			UnitPrice:  in.UnitPrice,
			Subtotal:   in.Weight.Mul(in.UnitPrice),
		}
	}

	deltas := ComputeDeltas(previous, next, kind)

	ids := deltas.MaterialIDs()
	for _, it := range next {
		if _, ok := deltas[it.MaterialID]; !ok {
			ids = append(ids, it.MaterialID)
		}
	}
	materials, err := s.materials.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load materials: %w", err)
	}

	for _, materialID := range deltas.MaterialIDs() {
		if _, ok := materials[materialID]; !ok {
			return nil, nil, apperror.NewNotFound("material", materialID)
		}
	}

	snapshot := make(map[id.ID]LineItem, len(previous))
	for _, it := range previous {
		snapshot[it.MaterialID] = it
	}
	for i := range next {
		if m, ok := materials[next[i].MaterialID]; ok {
			next[i].MaterialName = m.Name
			next[i].MaterialCode = m.CodeOrEmpty()
			continue
		}
		// Deleted material with an unchanged net weight: keep the old snapshot.
		old, ok := snapshot[next[i].MaterialID]
		if !ok {
			return nil, nil, apperror.NewNotFound("material", next[i].MaterialID)
		}
		next[i].MaterialName = old.MaterialName
		next[i].MaterialCode = old.MaterialCode
	}

	if kind == KindSale {
		if err := checkOversell(previous, next, deltas, materials); err != nil {
			return nil, nil, err
		}
	}
	return next, deltas, nil
}

// checkOversell rejects a sale that would take stock below zero. The stock
// read is not locked, so a concurrent sale can still race past it.
func checkOversell(previous, next []LineItem, deltas Deltas, materials map[id.ID]*material.Material) error {
	prevSums := weightsByMaterial(previous)
	nextSums := weightsByMaterial(next)

	for _, materialID := range deltas.MaterialIDs() {
		delta := deltas[materialID]
		if !delta.IsNegative() {
			continue
		}
		m := materials[materialID]
		if m.Stock+delta >= 0 {
			continue
		}
		available := m.Stock + prevSums[materialID]
		return apperror.NewInsufficientStock(
			materialID.String(),
			m.Name,
			nextSums[materialID].String(),
			available.String(),
		)
	}
	return nil
}

// applyDeltas moves stock through the register, recording the invoice
// version that caused each movement.
func (s *Service) applyDeltas(ctx context.Context, inv *Invoice, deltas Deltas) error {
	rec := stock.Recorder{ID: inv.ID, Type: string(inv.Kind), Version: inv.Version}
	return s.stock.Apply(ctx, rec, deltas)
}

type changeSet struct {
	Number   int64                     `json:"number"`
	Previous []LineItem                `json:"previous,omitempty"`
	Items    []LineItem                `json:"items"`
	Total    types.Money               `json:"total"`
	Deltas   map[string]types.Quantity `json:"deltas"`
}

func (s *Service) record(ctx context.Context, inv *Invoice, action audit.Action, previous []LineItem, deltas Deltas) error {
	cs := changeSet{
		Number:   inv.Number,
		Previous: previous,
		Items:    inv.Items,
		Total:    inv.Total,
		Deltas:   make(map[string]types.Quantity, len(deltas)),
	}
	for materialID, q := range deltas {
		cs.Deltas[materialID.String()] = q
	}

	changes, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	if err := s.audit.Record(ctx, audit.Entry{
		ID:         id.New(),
		EntityType: EntityType,
		EntityID:   inv.ID,
		Action:     action,
		UserID:     audit.UserID(ctx),
		Changes:    changes,
	}); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
