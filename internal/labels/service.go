package labels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/internal/orderimport"
	"github.com/vaulttrove/labels-backend/internal/orders"
	"github.com/vaulttrove/labels-backend/internal/settings"
	"github.com/vaulttrove/labels-backend/internal/usage"
	"github.com/vaulttrove/labels-backend/pkg/easypost"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
	"github.com/vaulttrove/labels-backend/pkg/metrics"
	"github.com/vaulttrove/labels-backend/pkg/outbox"
	"github.com/vaulttrove/labels-backend/pkg/outbox/payloads"
)

const (
	DefaultMaxBatchSize = 500
	DefaultBatchTimeout = 10 * time.Minute
	defaultLockTTL      = 15 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settingsLoader interface {
	Load(ctx context.Context, userID string) (settings.Settings, error)
}

type quotaGate interface {
	Admit(ctx context.Context, userID string, plan enums.PlanTier, units int) (usage.Reservation, error)
	Release(ctx context.Context, tx *gorm.DB, res usage.Reservation, units int) error
}

type batchLocker interface {
	LockKey(scope, id string) string
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) error
}

// Carrier is the subset of the carrier client the pipeline drives.
type Carrier interface {
	CreateShipment(ctx context.Context, req easypost.ShipmentRequest) (*easypost.Shipment, error)
	BuyShipment(ctx context.Context, shipmentID, rateID string) (*easypost.Shipment, error)
}

// CarrierFactory binds a carrier client to one user's API key.
type CarrierFactory func(apiKey string) (Carrier, error)

// Service buys shipping labels for parsed orders.
type Service interface {
	Process(ctx context.Context, req Request) (*Result, error)
	ProcessSingle(ctx context.Context, req SingleRequest) (*Result, error)
}

type ServiceParams struct {
	Settings      settingsLoader
	Usage         quotaGate
	Batches       batches.Repository
	Orders        orders.Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Carriers      CarrierFactory
	Locker        batchLocker
	Metrics       *metrics.LabelMetrics
	Logger        *logger.Logger
	FallbackPrice decimal.Decimal
	MaxBatchSize  int
	BatchTimeout  time.Duration
	LockTTL       time.Duration
	Clock         func() time.Time
}

type service struct {
	settings      settingsLoader
	usage         quotaGate
	batches       batches.Repository
	orders        orders.Repository
	tx            txRunner
	outbox        outboxPublisher
	carriers      CarrierFactory
	locker        batchLocker
	metrics       *metrics.LabelMetrics
	logg          *logger.Logger
	fallbackPrice decimal.Decimal
	maxBatch      int
	batchTimeout  time.Duration
	lockTTL       time.Duration
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Settings == nil {
		return nil, fmt.Errorf("settings loader required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage gate required")
	}
	if params.Batches == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Carriers == nil {
		return nil, fmt.Errorf("carrier factory required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	fallback := params.FallbackPrice
	if fallback.IsZero() {
		fallback = decimal.RequireFromString("0.63")
	}
	maxBatch := params.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	batchTimeout := params.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	lockTTL := params.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	if lockTTL < batchTimeout {
		lockTTL = batchTimeout + time.Minute
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		settings:      params.Settings,
		usage:         params.Usage,
		batches:       params.Batches,
		orders:        params.Orders,
		tx:            params.Tx,
		outbox:        params.Outbox,
		carriers:      params.Carriers,
		locker:        params.Locker,
		metrics:       params.Metrics,
		logg:          params.Logger,
		fallbackPrice: fallback,
		maxBatch:      maxBatch,
		batchTimeout:  batchTimeout,
		lockTTL:       lockTTL,
		now:           clock,
	}, nil
}

// Process runs the purchase pipeline for every order in the request. Per-order
// problems are reported as failures; only batch-level checks return errors.
// Once admitted, a batch keeps running if the caller goes away and is bounded
// by the server-side batch timeout instead.
func (s *service) Process(ctx context.Context, req Request) (*Result, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	started := s.now()
	ctx = s.logg.WithUserID(ctx, req.UserID)
	ctx = s.logg.WithBatchID(ctx, req.BatchID)

	cfg, err := s.settings.Load(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !cfg.CarrierReady() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier settings incomplete").
			WithDetails(map[string]any{"missing": missingSettings(cfg)})
	}

	existing, err := s.batches.Find(ctx, req.BatchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load batch")
	}
	if existing != nil && existing.UserID != req.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "batch id belongs to another account")
	}

	unlock, err := s.lock(ctx, req)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reservation, err := s.usage.Admit(ctx, req.UserID, cfg.Plan, len(req.Orders))
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeQuotaExceeded) {
			s.metrics.IncQuotaRejected()
			s.logg.Warn(ctx, "label batch rejected by monthly quota")
		}
		return nil, err
	}

	carrier, err := s.carriers(cfg.CarrierAPIKey)
	if err != nil {
		s.settle(ctx, req, reservation, nil, failAll(req.Orders, enums.FailureCarrierError, "carrier client unavailable"), decimal.Zero)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build carrier client")
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.batchTimeout)
	defer cancel()

	result := newResult(req.BatchID)
	postage := decimal.Zero
	for i, order := range req.Orders {
		if runCtx.Err() != nil {
			for _, rest := range req.Orders[i:] {
				result.Failures = append(result.Failures, Failure{
					OrderNumber: rest.OrderNumber,
					Reason:      enums.FailureCanceled,
					Message:     "batch deadline reached before the order was processed",
				})
			}
			s.logg.Warn(runCtx, "label batch deadline reached")
			break
		}

		out := s.processOrder(runCtx, carrier, cfg, req, order)
		if out.failure != nil {
			result.Failures = append(result.Failures, *out.failure)
			continue
		}
		postage = postage.Add(out.cost)
		if out.class == enums.LabelClassGround {
			result.GroundAdvantage = append(result.GroundAdvantage, out.ref)
		} else {
			result.Other = append(result.Other, out.ref)
		}
	}

	s.settle(ctx, req, reservation, result, result.Failures, postage)
	for _, f := range result.Failures {
		s.metrics.IncFailed(f.Reason.String())
	}
	s.metrics.ObserveBatch(req.Source, s.now().Sub(started))

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"requested": len(req.Orders),
		"ground":    len(result.GroundAdvantage),
		"other":     len(result.Other),
		"failed":    len(result.Failures),
		"postage":   postage.StringFixed(2),
	})
	s.logg.Info(logCtx, "label batch processed")
	return result, nil
}

func (s *service) normalize(req *Request) error {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(req.Orders) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one order is required")
	}
	if len(req.Orders) > s.maxBatch {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("batch exceeds %d orders", s.maxBatch))
	}
	req.BatchID = strings.TrimSpace(req.BatchID)
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}
	req.BatchName = strings.TrimSpace(req.BatchName)
	if req.BatchName == "" {
		req.BatchName = batches.DefaultName
	}
	if req.Source == "" {
		req.Source = SourceUpload
	}
	return nil
}

func (s *service) lock(ctx context.Context, req Request) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := s.locker.LockKey("batch", req.UserID+":"+req.BatchID)
	owner := uuid.NewString()
	ok, err := s.locker.AcquireLock(ctx, key, owner, s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire batch lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "batch is already being processed")
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, owner); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release batch lock failed")
		}
	}, nil
}

// settle returns the units of orders that never bought a label and records
// the batch outcome, in one transaction. It runs even when the request
// context is done.
func (s *service) settle(ctx context.Context, req Request, res usage.Reservation, result *Result, failures []Failure, postage decimal.Decimal) {
	ctx = context.WithoutCancel(ctx)

	released := 0
	byReason := map[string]int{}
	for _, f := range failures {
		byReason[f.Reason.String()]++
		if !f.Reason.LabelPurchased() {
			released++
		}
	}

	event := payloads.LabelBatchProcessedEvent{
		BatchID:          req.BatchID,
		BatchName:        req.BatchName,
		UserID:           req.UserID,
		Source:           req.Source,
		Requested:        len(req.Orders),
		FailuresByReason: byReason,
		PostageTotal:     postage.StringFixed(2),
		ReleasedUnits:    released,
		Month:            res.Month,
		CompletedAt:      s.now().UTC(),
	}
	if result != nil {
		event.GroundCount = len(result.GroundAdvantage)
		event.OtherCount = len(result.Other)
		event.Purchased = event.GroundCount + event.OtherCount
	}
	if res.Units == 0 {
		event.ReleasedUnits = 0
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.usage.Release(ctx, tx, res, released); err != nil {
			return fmt.Errorf("release usage: %w", err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLabelBatchProcessed,
			AggregateType: enums.AggregateBatch,
			AggregateID:   req.BatchID,
			Actor:         &outbox.ActorRef{UserID: req.UserID, Role: string(enums.RoleUser)},
			Data:          event,
		})
	})
	if err != nil {
		s.logg.Error(ctx, "label batch settlement failed", err)
	}
}

func failAll(list []orderimport.Order, reason enums.FailureReason, msg string) []Failure {
	out := make([]Failure, 0, len(list))
	for _, o := range list {
		out = append(out, Failure{OrderNumber: o.OrderNumber, Reason: reason, Message: msg})
	}
	return out
}

func missingSettings(cfg settings.Settings) []string {
	var missing []string
	if strings.TrimSpace(cfg.CarrierAPIKey) == "" {
		missing = append(missing, "carrierApiKey")
	}
	if !cfg.FromAddress.IsComplete() {
		missing = append(missing, "fromAddress")
	}
	return missing
}
