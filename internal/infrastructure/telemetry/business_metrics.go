package telemetry

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks shipment custody, verification and settlement activity.
type BusinessMetrics struct {
	logger *zap.Logger

	shipmentsCreated     *Counter
	unitsLocked          *Counter
	arrivals             *Counter
	verificationOutcomes *Counter
	productsAssembled    *Counter
	escrowSettlements    *Counter
	escrowAmount         *Histogram
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.shipmentsCreated, "supplytrace_shipments_created_total", "Shipments locked into custody", "{shipments}"},
		{&bm.unitsLocked, "supplytrace_units_locked_total", "Raw material units locked into custody", "{units}"},
		{&bm.arrivals, "supplytrace_shipment_arrivals_total", "Shipments released to the manufacturer", "{shipments}"},
		{&bm.verificationOutcomes, "supplytrace_verification_responses_total", "Verification responses by outcome", "{responses}"},
		{&bm.productsAssembled, "supplytrace_products_assembled_total", "Product units minted", "{products}"},
		{&bm.escrowSettlements, "supplytrace_escrow_settlements_total", "Escrow records funded, released or refunded", "{escrows}"},
	}

	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	bm.escrowAmount, err = NewHistogram(cfg.Meter,
		"supplytrace_escrow_amount",
		"Escrow amounts by disposition",
		"{currency}",
		[]float64{10, 100, 1_000, 10_000, 100_000, 1_000_000},
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordShipmentCreated records a new shipment and the units it locked.
func (bm *BusinessMetrics) RecordShipmentCreated(ctx context.Context, materialID uint64, quantity int64) {
	attr := AttrMaterialID.String(strconv.FormatUint(materialID, 10))
	bm.shipmentsCreated.Inc(ctx, attr)
	bm.unitsLocked.Add(ctx, quantity, attr)
}

// RecordArrival records a completed arrival by how it was established.
func (bm *BusinessMetrics) RecordArrival(ctx context.Context, mode string) {
	bm.arrivals.Inc(ctx, AttrArrivalMode.String(mode))
}

// RecordVerificationOutcome records the outcome of a verification response.
func (bm *BusinessMetrics) RecordVerificationOutcome(ctx context.Context, outcome string) {
	bm.verificationOutcomes.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordProductsAssembled records minted product units.
func (bm *BusinessMetrics) RecordProductsAssembled(ctx context.Context, materialID uint64, units int) {
	bm.productsAssembled.Add(ctx, int64(units), AttrMaterialID.String(strconv.FormatUint(materialID, 10)))
}

// RecordEscrow records an escrow transition and its amount.
func (bm *BusinessMetrics) RecordEscrow(ctx context.Context, disposition string, amount decimal.Decimal) {
	attr := AttrDisposition.String(disposition)
	bm.escrowSettlements.Inc(ctx, attr)
	bm.escrowAmount.Record(ctx, amount.InexactFloat64(), attr)
}
