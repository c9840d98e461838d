package shipment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const maxFailureDetail = 256

// ErrDispatchFailed is returned when the verification service rejects a request
var ErrDispatchFailed = shared.NewExternalError("VERIFICATION_DISPATCH_FAILED", "Verification service did not accept the request")

// VerifierConfig describes the query sent to the verification service
type VerifierConfig struct {
	Source         string
	SubscriptionID uint64
	GasLimit       uint32
	RoutingID      string
}

// VerifierService issues location verification requests and applies their responses
type VerifierService struct {
	txScope         TransactionScope
	dispatcher      shipment.VerificationDispatcher
	config          VerifierConfig
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
	newRequestID    func() string
}

// NewVerifierService creates a new VerifierService
func NewVerifierService(txScope TransactionScope, dispatcher shipment.VerificationDispatcher, config VerifierConfig, logger *zap.Logger) *VerifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifierService{
		txScope:      txScope,
		dispatcher:   dispatcher,
		config:       config,
		logger:       logger,
		now:          time.Now,
		newRequestID: func() string { return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *VerifierService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock replaces the time source
func (s *VerifierService) SetClock(now func() time.Time) {
	s.now = now
}

// IssueVerificationRequest dispatches a location query for an in-transit shipment.
// At most one request may be outstanding per shipment.
func (s *VerifierService) IssueVerificationRequest(ctx context.Context, id uint64) (string, error) {
	return s.issue(ctx, id, s.now(), false)
}

// issue reserves the poll and the request mapping in one transaction, then
// sends the query outside of it. The mapping is committed before the gateway
// can answer. With requireEligible the polling predicate is re-checked inside
// the reservation.
func (s *VerifierService) issue(ctx context.Context, id uint64, now time.Time, requireEligible bool) (string, error) {
	requestID := s.newRequestID()
	var (
		poll     int
		previous *time.Time
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sh, err := repos.ShipmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if requireEligible && !sh.IsPollable(now) {
			return shipment.ErrUpkeepNotNeeded.WithMessage(fmt.Sprintf("shipment %d is not due for a poll", id))
		}
		if sh.Status != shipment.StatusInTransit {
			return shipment.ErrShipmentNotInTransit
		}

		pending, err := repos.RequestRepo().ExistsForShipment(ctx, id)
		if err != nil {
			return err
		}
		if pending {
			return shipment.ErrUpkeepAlreadyInProgress
		}

		previous = sh.LastPolledAt
		if err := sh.RecordPoll(now); err != nil {
			return err
		}
		if err := repos.ShipmentRepo().Update(ctx, sh); err != nil {
			return err
		}
		if err := repos.RequestRepo().Create(ctx, &shipment.VerificationRequest{
			RequestID:  requestID,
			ShipmentID: id,
			IssuedAt:   now,
		}); err != nil {
			return err
		}

		poll = sh.PollsPerformed
		return repos.Events().Record(ctx, shipment.NewVerificationRequestedEvent(sh, requestID, now))
	})
	if err != nil {
		return "", err
	}

	dispatchErr := s.dispatcher.IssueRequest(ctx, shipment.VerificationQuery{
		RequestID:      requestID,
		ShipmentID:     id,
		Source:         s.config.Source,
		SubscriptionID: s.config.SubscriptionID,
		GasLimit:       s.config.GasLimit,
		RoutingID:      s.config.RoutingID,
	})
	if dispatchErr != nil {
		s.logger.Warn("verification dispatch failed",
			zap.Uint64("shipment_id", id),
			zap.String("request_id", requestID),
			zap.Error(dispatchErr),
		)
		if err := s.releaseReservation(ctx, requestID, id, poll, previous, dispatchErr); err != nil {
			s.logger.Error("failed to release verification reservation",
				zap.Uint64("shipment_id", id),
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
		return "", ErrDispatchFailed.WithMessage("verification dispatch failed: " + dispatchErr.Error())
	}

	s.logger.Info("verification requested",
		zap.Uint64("shipment_id", id),
		zap.String("request_id", requestID),
		zap.Int("poll", poll),
	)
	return requestID, nil
}

// releaseReservation drops the mapping of a request the gateway never
// accepted and gives the poll back. A mapping already consumed by a response
// is left alone.
func (s *VerifierService) releaseReservation(ctx context.Context, requestID string, id uint64, poll int, previous *time.Time, cause error) error {
	now := s.now()
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.RequestRepo().Take(ctx, requestID); err != nil {
			if errors.Is(err, shipment.ErrRequestNotFound) {
				return nil
			}
			return err
		}

		sh, err := repos.ShipmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if sh.Status == shipment.StatusInTransit && sh.PollsPerformed == poll {
			if err := sh.RevertPoll(previous, now); err != nil {
				return err
			}
			if err := repos.ShipmentRepo().Update(ctx, sh); err != nil {
				return err
			}
		}
		return repos.Events().Record(ctx, shipment.NewVerificationFailedEvent(
			id, requestID, shipment.OutcomeDispatchFailed, failureDetail([]byte(cause.Error())), now))
	})
}

// OnVerificationResponse applies a response from the verification service.
// The request mapping is consumed on first delivery; a replayed or unknown
// request id fails with ErrRequestNotFound. Error payloads and geofence
// misses leave the shipment in transit and are reported through the outcome.
func (s *VerifierService) OnVerificationResponse(ctx context.Context, requestID string, payload, errPayload []byte) (*VerificationResult, error) {
	now := s.now()
	result := &VerificationResult{RequestID: requestID}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		req, err := repos.RequestRepo().Take(ctx, requestID)
		if err != nil {
			return err
		}
		result.ShipmentID = req.ShipmentID

		sh, err := repos.ShipmentRepo().FindByID(ctx, req.ShipmentID)
		if err != nil {
			return err
		}
		if sh.Status != shipment.StatusInTransit {
			result.Outcome = shipment.OutcomeStale
			return nil
		}

		if len(errPayload) > 0 {
			result.Outcome = shipment.OutcomeOracleError
			return repos.Events().Record(ctx, shipment.NewVerificationFailedEvent(
				sh.ID, requestID, result.Outcome, failureDetail(errPayload), now))
		}

		loc, err := shipment.DecodeLocationPayload(payload)
		if err != nil {
			result.Outcome = shipment.OutcomeMalformedPayload
			return repos.Events().Record(ctx, shipment.NewVerificationFailedEvent(
				sh.ID, requestID, result.Outcome, err.Error(), now))
		}

		inside, distanceSquared := sh.WithinGeofence(loc)
		if !inside {
			result.Outcome = shipment.OutcomeOutsideGeofence
			return repos.Events().Record(ctx, shipment.NewLocationMismatchEvent(sh, requestID, loc, distanceSquared, now))
		}

		result.Outcome = shipment.OutcomeArrived
		return completeArrival(ctx, repos, sh, shipment.ArrivalModeOracle, now)
	})
	if err != nil {
		if errors.Is(err, shipment.ErrRequestNotFound) {
			s.logger.Warn("verification response for unknown request", zap.String("request_id", requestID))
		}
		return nil, err
	}

	s.logger.Info("verification response applied",
		zap.String("request_id", requestID),
		zap.Uint64("shipment_id", result.ShipmentID),
		zap.String("outcome", string(result.Outcome)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordVerificationOutcome(ctx, string(result.Outcome))
		if result.Outcome == shipment.OutcomeArrived {
			s.businessMetrics.RecordArrival(ctx, string(shipment.ArrivalModeOracle))
		}
	}
	return result, nil
}

func failureDetail(errPayload []byte) string {
	detail := string(errPayload)
	if !utf8.Valid(errPayload) {
		detail = hex.EncodeToString(errPayload)
	}
	if len(detail) > maxFailureDetail {
		detail = detail[:maxFailureDetail]
	}
	return detail
}
