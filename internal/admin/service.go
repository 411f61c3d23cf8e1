// Package admin serves platform-wide statistics to administrators.
package admin

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

const topUsersLimit = 5

type Counts struct {
	Users     int64           `json:"totalUsers"`
	Batches   int64           `json:"totalBatches"`
	Orders    int64           `json:"totalOrders"`
	LabelCost decimal.Decimal `json:"totalLabelCost"`
}

type UserUsage struct {
	UserID     string          `json:"userId"`
	OrderCount int64           `json:"orderCount"`
	TotalCost  decimal.Decimal `json:"totalCost"`
}

type Stats struct {
	Counts
	TopUsers []UserUsage `json:"topUsers"`
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("admin repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load platform counts")
	}
	top, err := s.repo.TopUsers(ctx, topUsersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load top users")
	}
	return &Stats{Counts: counts, TopUsers: top}, nil
}
