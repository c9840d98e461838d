package shipment

import (
	"context"
	"time"

	"github.com/supplytrace/backend/internal/domain/shipment"
	"go.uber.org/zap"
)

// UpkeepService answers the scheduled-polling service: which shipment needs a
// verification poll next, and performing that poll
type UpkeepService struct {
	txScope  TransactionScope
	verifier *VerifierService
	logger   *zap.Logger
	now      func() time.Time
}

// NewUpkeepService creates a new UpkeepService
func NewUpkeepService(txScope TransactionScope, verifier *VerifierService, logger *zap.Logger) *UpkeepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpkeepService{
		txScope:  txScope,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (s *UpkeepService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckPollable scans the in-transit set in ascending id order and returns the
// first shipment that is eligible for a poll and has no request outstanding.
// Shipments waiting on a response are skipped so they cannot starve the rest.
func (s *UpkeepService) CheckPollable(ctx context.Context) (bool, []byte, error) {
	return s.CheckPollableExcluding(ctx, nil)
}

// CheckPollableExcluding is CheckPollable ignoring the shipments named by
// earlier payloads. Unreadable payloads are ignored.
func (s *UpkeepService) CheckPollableExcluding(ctx context.Context, exclude [][]byte) (bool, []byte, error) {
	now := s.now()
	skip := make(map[uint64]struct{}, len(exclude))
	for _, p := range exclude {
		if id, err := shipment.DecodeUpkeepPayload(p); err == nil {
			skip[id] = struct{}{}
		}
	}
	var payload []byte

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		ids, err := repos.PollSet().List(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := skip[id]; ok {
				continue
			}
			sh, err := repos.ShipmentRepo().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if !sh.IsPollable(now) {
				continue
			}
			pending, err := repos.RequestRepo().ExistsForShipment(ctx, id)
			if err != nil {
				return err
			}
			if pending {
				continue
			}
			payload = shipment.EncodeUpkeepPayload(id)
			return nil
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return payload != nil, payload, nil
}

// Perform decodes the payload, re-checks eligibility and issues the poll.
// Calling it when nothing is due returns ErrUpkeepNotNeeded without changing state.
func (s *UpkeepService) Perform(ctx context.Context, payload []byte) (string, error) {
	id, err := shipment.DecodeUpkeepPayload(payload)
	if err != nil {
		return "", err
	}

	requestID, err := s.verifier.issue(ctx, id, s.now(), true)
	if err != nil {
		s.logger.Debug("upkeep perform rejected", zap.Uint64("shipment_id", id), zap.Error(err))
		return "", err
	}
	return requestID, nil
}
