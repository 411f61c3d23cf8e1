package labels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/internal/costs"
	"github.com/vaulttrove/labels-backend/internal/orderimport"
	"github.com/vaulttrove/labels-backend/internal/settings"
	"github.com/vaulttrove/labels-backend/internal/shipping"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/easypost"
	"github.com/vaulttrove/labels-backend/pkg/enums"
)

// processOrder buys and records one label. A panic anywhere in the pipeline
// becomes a failure for this order only; once the carrier has sold the label
// it is reported as persist_failed so the label stays counted.
func (s *service) processOrder(ctx context.Context, carrier Carrier, cfg settings.Settings, req Request, order orderimport.Order) (out orderOutcome) {
	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	purchased := false
	tracking := ""
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(s.logg.WithField(ctx, "tracking_code", tracking), "label pipeline panic", fmt.Errorf("panic: %v", r))
			if purchased {
				out = failed(order, enums.FailurePersistFailed, "label purchased but could not be saved; tracking "+tracking)
				return
			}
			out = failed(order, enums.FailureUnexpected, "unexpected error while processing order")
		}
	}()

	if missing := missingAddressFields(order); len(missing) > 0 {
		return failed(order, enums.FailureInvalidOrder, "missing "+strings.Join(missing, ", "))
	}

	parcel, err := shipping.ResolveParcel(order, cfg.PackagePresets)
	if err != nil {
		return failed(order, enums.FailureInvalidOrder, err.Error())
	}

	shipment, err := carrier.CreateShipment(ctx, shipping.BuildShipment(order, *cfg.FromAddress, parcel))
	if err != nil {
		return failed(order, enums.FailureCarrierError, carrierMessage(err, "shipment creation failed"))
	}
	if shipment == nil || len(shipment.Rates) == 0 {
		return failed(order, enums.FailureNoRateAvailable, "carrier returned no rates")
	}

	rate, ok := shipping.SelectRate(shipping.QuotesFromRates(shipment.Rates), shipping.IsHighValue(order))
	if !ok {
		return failed(order, enums.FailureNoRateAvailable, "no rate with a usable price")
	}

	// A buy that reached the carrier may be billed, so it is never cut short.
	bought, err := carrier.BuyShipment(context.WithoutCancel(ctx), shipment.ID, rate.ID)
	if err != nil {
		return failed(order, enums.FailurePurchaseFailed, carrierMessage(err, "label purchase failed"))
	}
	if bought == nil {
		return failed(order, enums.FailurePurchaseFailed, "carrier returned an empty purchase")
	}
	purchased = true
	tracking = bought.TrackingCode
	labelURL := bought.LabelURL()
	if labelURL == "" {
		return failed(order, enums.FailurePurchaseFailed, "carrier did not return a label")
	}

	class := shipping.Classify(rate.Service)
	prices := cfg.Prices
	if prices.FallbackLabel == nil {
		fallback := s.fallbackPrice
		prices.FallbackLabel = &fallback
	}
	breakdown := costs.Compute(costs.Flags{
		UseEnvelope:    order.UseEnvelope,
		ShippingShield: order.ShippingShield,
		UsePennySleeve: order.UsePennySleeve,
		UseTopLoader:   order.UseTopLoader,
	}, rate.Price.String(), prices)

	row := &models.LabelOrder{
		ID:              uuid.New(),
		UserID:          req.UserID,
		BatchID:         req.BatchID,
		BatchName:       req.BatchName,
		OrderNumber:     order.OrderNumber,
		TrackingCode:    bought.TrackingCode,
		TrackingURL:     bought.TrackingURL(),
		LabelURL:        labelURL,
		ToName:          order.Name,
		Carrier:         rate.Carrier,
		Service:         rate.Service,
		LabelClass:      class,
		LabelCost:       breakdown.Label,
		EnvelopeCost:    breakdown.Envelope,
		ShieldCost:      breakdown.Shield,
		PennySleeveCost: breakdown.PennySleeve,
		TopLoaderCost:   breakdown.TopLoader,
		TotalCost:       breakdown.Total,
		UseEnvelope:     order.UseEnvelope,
		ShippingShield:  order.ShippingShield,
		UsePennySleeve:  order.UsePennySleeve,
		UseTopLoader:    order.UseTopLoader,
		NonMachinable:   order.NonMachinable,
		PackageName:     order.PackageName,
		Notes:           order.Notes,
	}
	if err := s.persist(ctx, req, row); err != nil {
		logCtx := s.logg.WithField(ctx, "tracking_code", bought.TrackingCode)
		s.logg.Error(logCtx, "label purchased but not recorded", err)
		return failed(order, enums.FailurePersistFailed, "label purchased but could not be saved; tracking "+bought.TrackingCode)
	}

	s.metrics.IncPurchased(class.String())
	postage, _ := breakdown.Label.Float64()
	s.metrics.AddPostage(postage)

	return orderOutcome{
		ref: LabelRef{
			URL:         labelURL,
			Tracking:    bought.TrackingCode,
			OrderNumber: order.OrderNumber,
		},
		class: class,
		cost:  breakdown.Total,
	}
}

// persist upserts the batch and inserts the order in one transaction. Notes
// are only written when the batch is created. The label is already paid for,
// so the write ignores request cancellation.
func (s *service) persist(ctx context.Context, req Request, row *models.LabelOrder) error {
	ctx = context.WithoutCancel(ctx)
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		batchRepo := s.batches.WithTx(tx)
		existing, err := batchRepo.Find(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if existing != nil && existing.UserID != req.UserID {
			return errors.New("batch owned by another account")
		}
		in := batches.BatchUpsert{ID: req.BatchID, UserID: req.UserID, Name: &req.BatchName}
		if existing == nil && req.BatchNotes != "" {
			notes := req.BatchNotes
			in.Notes = &notes
		}
		if err := batchRepo.Upsert(ctx, in); err != nil {
			return err
		}
		return s.orders.WithTx(tx).Create(ctx, row)
	})
}

func failed(order orderimport.Order, reason enums.FailureReason, msg string) orderOutcome {
	return orderOutcome{failure: &Failure{OrderNumber: order.OrderNumber, Reason: reason, Message: msg}}
}

func carrierMessage(err error, fallback string) string {
	if apiErr, ok := easypost.AsAPIError(err); ok && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return fallback + ": " + err.Error()
	}
	return fallback
}

func missingAddressFields(o orderimport.Order) []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", o.Name},
		{"address1", o.Address1},
		{"city", o.City},
		{"state", o.State},
		{"zip", o.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
