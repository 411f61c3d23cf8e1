package labels

import (
	"context"

	"github.com/vaulttrove/labels-backend/internal/orderimport"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

// ProcessSingle buys one label for a free-form address and files it under the
// user's single-labels batch.
func (s *service) ProcessSingle(ctx context.Context, req SingleRequest) (*Result, error) {
	if req.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	order := orderimport.Order{
		Name:          req.Name,
		Address1:      req.Street1,
		Address2:      req.Street2,
		City:          req.City,
		State:         req.State,
		Zip:           req.Zip,
		Weight:        1,
		OrderNumber:   req.OrderNumber,
		NonMachinable: req.NonMachinable,
		UseEnvelope:   true,
		PackageName:   req.PackageName,
	}
	if req.Weight != nil && *req.Weight > 0 {
		order.Weight = *req.Weight
	}
	if req.Value != nil {
		cfg, err := s.settings.Load(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		order.Value = *req.Value
		order.UseEnvelope = order.Value.LessThanOrEqual(cfg.Thresholds.ValueThreshold)
	}

	return s.Process(ctx, Request{
		UserID:     req.UserID,
		BatchID:    SingleBatchID(req.UserID),
		BatchName:  SingleBatchName,
		BatchNotes: SingleBatchNotes,
		Orders:     []orderimport.Order{order},
		Source:     SourceSingle,
	})
}
