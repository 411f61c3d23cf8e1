package batches

import (
	"context"
	"fmt"
	"strings"

	"github.com/vaulttrove/labels-backend/internal/orders"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

const maxNotesLength = 2000

// Detail is a batch with its orders.
type Detail struct {
	Batch  BatchDTO          `json:"batch"`
	Orders []orders.OrderDTO `json:"orders"`
}

type BatchDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	Archived  bool   `json:"archived"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toDTO(m *models.Batch) BatchDTO {
	return BatchDTO{
		ID:        m.ID,
		Name:      m.Name,
		Notes:     m.Notes,
		Archived:  m.Archived,
		CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: m.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

type ordersReader interface {
	ListByBatch(ctx context.Context, userID, batchID string) ([]models.LabelOrder, error)
}

// Service exposes batch management for the owning user.
type Service interface {
	List(ctx context.Context, userID string, q ListQuery) ([]Summary, error)
	Detail(ctx context.Context, userID, batchID string) (*Detail, error)
	Orders(ctx context.Context, userID, batchID string) ([]models.LabelOrder, error)
	UpdateNotes(ctx context.Context, userID, batchID, notes string) (*BatchDTO, error)
	SetArchived(ctx context.Context, userID, batchID string, archived bool) (*BatchDTO, error)
}

type service struct {
	repo   Repository
	orders ordersReader
}

func NewService(repo Repository, ordersRepo ordersReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, orders: ordersRepo}, nil
}

func (s *service) List(ctx context.Context, userID string, q ListQuery) ([]Summary, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	rows, err := s.repo.List(ctx, userID, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list batches")
	}
	return rows, nil
}

func (s *service) Detail(ctx context.Context, userID, batchID string) (*Detail, error) {
	batch, err := s.owned(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	rows, err := s.orders.ListByBatch(ctx, userID, batch.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list batch orders")
	}
	return &Detail{Batch: toDTO(batch), Orders: orders.FromModels(rows)}, nil
}

// Orders returns the raw order rows of an owned batch (exports and merges).
func (s *service) Orders(ctx context.Context, userID, batchID string) ([]models.LabelOrder, error) {
	if _, err := s.owned(ctx, userID, batchID); err != nil {
		return nil, err
	}
	rows, err := s.orders.ListByBatch(ctx, userID, batchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list batch orders")
	}
	return rows, nil
}

func (s *service) UpdateNotes(ctx context.Context, userID, batchID, notes string) (*BatchDTO, error) {
	if len(notes) > maxNotesLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}
	return s.merge(ctx, userID, batchID, BatchUpsert{Notes: &notes})
}

func (s *service) SetArchived(ctx context.Context, userID, batchID string, archived bool) (*BatchDTO, error) {
	return s.merge(ctx, userID, batchID, BatchUpsert{Archived: &archived})
}

func (s *service) merge(ctx context.Context, userID, batchID string, in BatchUpsert) (*BatchDTO, error) {
	if _, err := s.owned(ctx, userID, batchID); err != nil {
		return nil, err
	}
	in.ID = batchID
	in.UserID = userID
	if err := s.repo.Upsert(ctx, in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update batch")
	}
	updated, err := s.repo.Find(ctx, batchID)
	if err != nil || updated == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload batch")
	}
	dto := toDTO(updated)
	return &dto, nil
}

// owned loads a batch and hides batches of other users behind NotFound.
func (s *service) owned(ctx context.Context, userID, batchID string) (*models.Batch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	batch, err := s.repo.Find(ctx, batchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load batch")
	}
	if batch == nil || batch.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	return batch, nil
}
