package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/outbox"
	"github.com/vaulttrove/labels-backend/pkg/outbox/payloads"
	"github.com/vaulttrove/labels-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CredentialVerifier checks a carrier key against the carrier API.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context) error
}

// VerifierFactory builds a verifier bound to one user's key.
type VerifierFactory func(apiKey string) (CredentialVerifier, error)

// Service exposes user settings operations.
type Service interface {
	Load(ctx context.Context, userID string) (Settings, error)
	Get(ctx context.Context, userID string) (*SettingsDTO, error)
	Update(ctx context.Context, userID string, input UpdateInput) (*SettingsDTO, error)
	SetPlan(ctx context.Context, actorID, userID string, plan enums.PlanTier) (*SettingsDTO, error)
	VerifyCarrier(ctx context.Context, userID string) error
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Verifier   VerifierFactory
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	verifier VerifierFactory
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		outbox:   params.Outbox,
		verifier: params.Verifier,
	}, nil
}

// Load always reads the current row; settings are never cached across requests.
func (s *service) Load(ctx context.Context, userID string) (Settings, error) {
	row, err := s.repo.Find(ctx, userID)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}
	return fromModel(userID, row), nil
}

func (s *service) Get(ctx context.Context, userID string) (*SettingsDTO, error) {
	row, err := s.repo.Find(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}
	return toDTO(userID, row), nil
}

func (s *service) Update(ctx context.Context, userID string, input UpdateInput) (*SettingsDTO, error) {
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	var saved *models.UserSettings
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.Find(ctx, userID)
		if err != nil {
			return err
		}
		if row == nil {
			row = &models.UserSettings{UserID: userID, Plan: enums.PlanFree, PackagePresets: types.PackagePresets{}}
		}
		applyUpdate(row, input)
		row.UpdatedAt = time.Now().UTC()
		if err := repo.Save(ctx, row); err != nil {
			return err
		}
		saved = row
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save settings")
	}
	return toDTO(userID, saved), nil
}

func applyUpdate(row *models.UserSettings, in UpdateInput) {
	if in.Email != nil {
		row.Email = trimmedOrNil(*in.Email)
	}
	if in.CarrierAPIKey != nil {
		row.CarrierAPIKey = strings.TrimSpace(*in.CarrierAPIKey)
	}
	if in.FromAddress != nil {
		addr := *in.FromAddress
		row.FromAddress = &addr
	}
	if in.EnvelopeCost != nil {
		row.EnvelopeCost = in.EnvelopeCost
	}
	if in.ShieldCost != nil {
		row.ShieldCost = in.ShieldCost
	}
	if in.PennySleeveCost != nil {
		row.PennySleeveCost = in.PennySleeveCost
	}
	if in.TopLoaderCost != nil {
		row.TopLoaderCost = in.TopLoaderCost
	}
	if in.ValueThreshold != nil {
		row.ValueThreshold = in.ValueThreshold
	}
	if in.CardCountThreshold != nil {
		row.CardCountThreshold = in.CardCountThreshold
	}
	if in.PackagePresets != nil {
		row.PackagePresets = *in.PackagePresets
	}
	if in.LogoURL != nil {
		row.LogoURL = trimmedOrNil(*in.LogoURL)
	}
}

func validateUpdate(in UpdateInput) error {
	for name, v := range map[string]*decimal.Decimal{
		"envelopeCost":    in.EnvelopeCost,
		"shieldCost":      in.ShieldCost,
		"pennySleeveCost": in.PennySleeveCost,
		"topLoaderCost":   in.TopLoaderCost,
		"valueThreshold":  in.ValueThreshold,
	} {
		if v != nil && v.IsNegative() {
			return validationError(name, "must be >= 0")
		}
	}
	if in.CardCountThreshold != nil && *in.CardCountThreshold < 0 {
		return validationError("cardCountThreshold", "must be >= 0")
	}
	if in.PackagePresets != nil {
		seen := make(map[string]struct{}, len(*in.PackagePresets))
		for i, p := range *in.PackagePresets {
			name := strings.ToLower(strings.TrimSpace(p.Name))
			field := fmt.Sprintf("packagePresets[%d]", i)
			if name == "" {
				return validationError(field+".name", "is required")
			}
			if _, dup := seen[name]; dup {
				return validationError(field+".name", "must be unique")
			}
			seen[name] = struct{}{}
			if p.Weight <= 0 {
				return validationError(field+".weight", "must be > 0")
			}
		}
	}
	return nil
}

func validationError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s %s", field, msg)).
		WithDetails(map[string]string{field: msg})
}

// SetPlan changes a user's plan and emits plan_changed in the same transaction.
func (s *service) SetPlan(ctx context.Context, actorID, userID string, plan enums.PlanTier) (*SettingsDTO, error) {
	if !plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var saved *models.UserSettings
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Find(ctx, userID)
		if err != nil {
			return err
		}
		from := enums.PlanFree
		if current != nil && current.Plan.IsValid() {
			from = current.Plan
		}
		if err := repo.UpdatePlan(ctx, userID, plan); err != nil {
			return err
		}
		if from != plan {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPlanChanged,
				AggregateType: enums.AggregateUser,
				AggregateID:   userID,
				Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.RoleAdmin.String()},
				Data: payloads.PlanChangedEvent{
					UserID:    userID,
					FromPlan:  from.String(),
					ToPlan:    plan.String(),
					ChangedBy: actorID,
				},
			}); err != nil {
				return err
			}
		}
		saved, err = repo.Find(ctx, userID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set plan")
	}
	return toDTO(userID, saved), nil
}

// VerifyCarrier checks the stored key with a cheap carrier call.
func (s *service) VerifyCarrier(ctx context.Context, userID string) error {
	if s.verifier == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "carrier verification unavailable")
	}
	current, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(current.CarrierAPIKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "carrier api key not configured")
	}
	client, err := s.verifier(current.CarrierAPIKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build carrier client")
	}
	if err := client.VerifyCredentials(ctx); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "carrier credential check failed")
	}
	return nil
}

func trimmedOrNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
