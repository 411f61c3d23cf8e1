package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/pkg/db"
	"github.com/vaulttrove/labels-backend/pkg/db/dbtest"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/outbox"
	"github.com/vaulttrove/labels-backend/pkg/outbox/payloads"
	"github.com/vaulttrove/labels-backend/pkg/types"
)

type stubVerifier struct {
	err error
}

func (s stubVerifier) VerifyCredentials(context.Context) error { return s.err }

func newTestService(t *testing.T, verifyErr error) (Service, *gorm.DB, *[]string) {
	t.Helper()
	conn := dbtest.Open(t, dbtest.UserSettingsTable, dbtest.OutboxEventsTable)
	keys := &[]string{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         db.NewFromConn(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		Verifier: func(apiKey string) (CredentialVerifier, error) {
			*keys = append(*keys, apiKey)
			return stubVerifier{err: verifyErr}, nil
		},
	})
	require.NoError(t, err)
	return svc, conn, keys
}

func TestLoadMissingRowDefaults(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	s, err := svc.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, enums.PlanFree, s.Plan)
	assert.False(t, s.CarrierReady())
	assert.True(t, s.Thresholds.ValueThreshold.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 8, s.Thresholds.NonMachinableItemThreshold)
	assert.Nil(t, s.Prices.Envelope)
}

func TestUpdateAndGetMasksKey(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	key := "EZAK_live_123456"
	zero := decimal.Zero
	threshold := decimal.NewFromInt(40)
	count := 5
	presets := types.PackagePresets{{Name: "Box", PredefinedPackage: "Parcel", Weight: 6}}
	from := types.ShipAddress{Name: "Card Shop", Street1: "1 Main", City: "Austin", State: "TX", Zip: "73301"}

	dto, err := svc.Update(ctx, "user-1", UpdateInput{
		CarrierAPIKey:      &key,
		FromAddress:        &from,
		EnvelopeCost:       &zero,
		ValueThreshold:     &threshold,
		CardCountThreshold: &count,
		PackagePresets:     &presets,
	})
	require.NoError(t, err)
	assert.True(t, dto.CarrierKeySet)
	assert.Equal(t, "****3456", dto.CarrierKeyHint)
	assert.True(t, dto.EnvelopeCost.IsZero())
	assert.Equal(t, "0.02", dto.PennySleeveCost.StringFixed(2))

	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), key)

	loaded, err := svc.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, loaded.CarrierReady())
	require.NotNil(t, loaded.Prices.Envelope)
	assert.True(t, loaded.Prices.Envelope.IsZero())
	assert.True(t, loaded.Thresholds.ValueThreshold.Equal(threshold))
	assert.Equal(t, 5, loaded.Thresholds.NonMachinableItemThreshold)
	_, ok := loaded.PackagePresets.Find("box")
	assert.True(t, ok)

	notes := "https://cdn.example.com/logo.png"
	_, err = svc.Update(ctx, "user-1", UpdateInput{LogoURL: &notes})
	require.NoError(t, err)
	loaded, err = svc.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, key, loaded.CarrierAPIKey, "partial update must keep the key")
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	negative := decimal.NewFromFloat(-0.5)
	_, err := svc.Update(ctx, "user-1", UpdateInput{ShieldCost: &negative})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	dup := types.PackagePresets{{Name: "Box", Weight: 1}, {Name: "box", Weight: 2}}
	_, err = svc.Update(ctx, "user-1", UpdateInput{PackagePresets: &dup})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	noWeight := types.PackagePresets{{Name: "Flat", Weight: 0}}
	_, err = svc.Update(ctx, "user-1", UpdateInput{PackagePresets: &noWeight})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	count := -1
	_, err = svc.Update(ctx, "user-1", UpdateInput{CardCountThreshold: &count})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetPlanEmitsEvent(t *testing.T) {
	svc, conn, _ := newTestService(t, nil)
	ctx := context.Background()

	dto, err := svc.SetPlan(ctx, "admin-1", "user-1", enums.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, enums.PlanPro, dto.Plan)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPlanChanged, events[0].EventType)
	assert.Equal(t, "user-1", events[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload payloads.PlanChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, "free", payload.FromPlan)
	assert.Equal(t, "pro", payload.ToPlan)

	_, err = svc.SetPlan(ctx, "admin-1", "user-1", enums.PlanPro)
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Find(&events).Error)
	assert.Len(t, events, 1, "unchanged plan emits nothing")

	_, err = svc.SetPlan(ctx, "admin-1", "user-1", enums.PlanTier("gold"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetPlanKeepsOtherSettings(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	key := "EZAK_abcdef"
	_, err := svc.Update(ctx, "user-1", UpdateInput{CarrierAPIKey: &key})
	require.NoError(t, err)

	_, err = svc.SetPlan(ctx, "admin-1", "user-1", enums.PlanPro)
	require.NoError(t, err)

	loaded, err := svc.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, key, loaded.CarrierAPIKey)
	assert.Equal(t, enums.PlanPro, loaded.Plan)

	_, err = svc.Update(ctx, "user-1", UpdateInput{CarrierAPIKey: &key})
	require.NoError(t, err)
	loaded, err = svc.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enums.PlanPro, loaded.Plan, "settings update must not reset the plan")
}

func TestVerifyCarrier(t *testing.T) {
	svc, _, keys := newTestService(t, nil)
	ctx := context.Background()

	err := svc.VerifyCarrier(ctx, "user-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	key := "EZAK_abcdef"
	_, err = svc.Update(ctx, "user-1", UpdateInput{CarrierAPIKey: &key})
	require.NoError(t, err)
	require.NoError(t, svc.VerifyCarrier(ctx, "user-1"))
	assert.Equal(t, []string{key}, *keys)

	failing, _, _ := newTestService(t, errors.New("unauthorized"))
	_, err = failing.Update(ctx, "user-1", UpdateInput{CarrierAPIKey: &key})
	require.NoError(t, err)
	err = failing.VerifyCarrier(ctx, "user-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("abc"))
	assert.Equal(t, "****wxyz", maskKey("abcdwxyz"))
}
