package orders

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/pagination"
)

const dashboardRecentBatches = 3

// Service exposes order history reads.
type Service interface {
	History(ctx context.Context, userID string, params pagination.Params) (*OrderList, error)
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
	ForeignLabelURLs(ctx context.Context, userID string, urls []string) ([]string, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) History(ctx context.Context, userID string, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

// ForeignLabelURLs lists the urls that are not labels of the user's own
// orders, in input order and without duplicates.
func (s *service) ForeignLabelURLs(ctx context.Context, userID string, urls []string) ([]string, error) {
	unique := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	owned, err := s.repo.OwnedLabelURLs(ctx, userID, unique)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check label ownership")
	}
	var foreign []string
	for _, u := range unique {
		if _, ok := owned[u]; !ok {
			foreign = append(foreign, u)
		}
	}
	return foreign, nil
}

func (s *service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	totals, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load totals")
	}
	recent, err := s.repo.RecentBatches(ctx, userID, dashboardRecentBatches)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent batches")
	}
	return &Dashboard{Totals: totals, RecentBatches: recent}, nil
}
