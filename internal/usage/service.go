package usage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

const DefaultFreeQuota = 10

// Month formats the usage bucket key (YYYY-MM, UTC).
func Month(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Snapshot is the usage view returned to clients.
type Snapshot struct {
	Month string         `json:"month"`
	Count int            `json:"count"`
	Limit *int           `json:"limit"`
	Plan  enums.PlanTier `json:"plan"`
}

// Reservation records what Admit took so it can be partially released.
type Reservation struct {
	UserID string
	Month  string
	Units  int
}

// QuotaDetails is attached to CodeQuotaExceeded errors.
type QuotaDetails struct {
	Redirect  string `json:"redirect"`
	Used      int    `json:"used"`
	Requested int    `json:"requested"`
	Limit     int    `json:"limit"`
}

type ServiceParams struct {
	Repository Repository
	FreeQuota  int
	Redirect   string
	Clock      func() time.Time
}

type Service struct {
	repo     Repository
	quota    int
	redirect string
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, errors.New("usage repository required")
	}
	quota := params.FreeQuota
	if quota <= 0 {
		quota = DefaultFreeQuota
	}
	redirect := strings.TrimSpace(params.Redirect)
	if redirect == "" {
		redirect = "/dashboard/billing"
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: params.Repository, quota: quota, redirect: redirect, now: clock}, nil
}

// Quota returns the monthly free-tier ceiling.
func (s *Service) Quota() int {
	return s.quota
}

// Admit reserves units for the current month. Unlimited plans are admitted
// without touching the counter.
func (s *Service) Admit(ctx context.Context, userID string, plan enums.PlanTier, units int) (Reservation, error) {
	month := Month(s.now())
	res := Reservation{UserID: userID, Month: month}
	if plan.Unlimited() || units <= 0 {
		return res, nil
	}
	ok, err := s.repo.Reserve(ctx, userID, month, units, s.quota)
	if err != nil {
		return res, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve usage")
	}
	if !ok {
		used, curErr := s.repo.Current(ctx, userID, month)
		if curErr != nil {
			used = s.quota
		}
		return res, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "monthly label limit reached").
			WithDetails(QuotaDetails{
				Redirect:  s.redirect,
				Used:      used,
				Requested: units,
				Limit:     s.quota,
			})
	}
	res.Units = units
	return res, nil
}

// Release returns unused units from a reservation, optionally inside tx.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, res Reservation, units int) error {
	if units <= 0 || res.Units == 0 {
		return nil
	}
	if units > res.Units {
		units = res.Units
	}
	return s.repo.WithTx(tx).Release(ctx, res.UserID, res.Month, units)
}

// Snapshot reports the caller's usage for the current month.
func (s *Service) Snapshot(ctx context.Context, userID string, plan enums.PlanTier) (Snapshot, error) {
	month := Month(s.now())
	count, err := s.repo.Current(ctx, userID, month)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load usage")
	}
	snap := Snapshot{Month: month, Count: count, Plan: plan}
	if !plan.Unlimited() {
		limit := s.quota
		snap.Limit = &limit
	}
	return snap, nil
}
