package shipment_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

func TestIssueVerificationRequest(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 3)

	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, requestID)
	require.Len(t, f.dispatcher.issued, 1)
	assert.Equal(t, requestID, f.dispatcher.issued[0].RequestID)
	assert.Equal(t, id, f.dispatcher.issued[0].ShipmentID)
	assert.Equal(t, "gps", f.dispatcher.issued[0].Source)

	resp, err := f.registry.GetShipment(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PollsPerformed)
	require.NotNil(t, resp.LastPolledAt)
	assert.Equal(t, f.now, *resp.LastPolledAt)

	_, err = f.verifier.IssueVerificationRequest(f.ctx, id)
	assert.ErrorIs(t, err, shipment.ErrUpkeepAlreadyInProgress)
}

func TestIssueVerificationRequest_RequiresInTransit(t *testing.T) {
	f := newFixture(t)
	created, err := f.registry.CreateShipment(f.ctx, f.supplier, f.input(1))
	require.NoError(t, err)

	_, err = f.verifier.IssueVerificationRequest(f.ctx, created.ID)
	assert.ErrorIs(t, err, shipment.ErrShipmentNotInTransit)
}

func TestIssueVerificationRequest_DispatchFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 1)
	f.dispatcher.err = errors.New("gateway down")

	_, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	assert.ErrorIs(t, err, appshipment.ErrDispatchFailed)

	resp, err := f.registry.GetShipment(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.PollsPerformed)
	assert.Nil(t, resp.LastPolledAt)

	// the reservation is released, so the next attempt is not blocked
	f.dispatcher.err = nil
	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)

	result, err := f.verifier.OnVerificationResponse(f.ctx, requestID, shipment.EncodeLocationPayload(0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, shipment.OutcomeArrived, result.Outcome)
}

func TestIssueVerificationRequest_DispatchFailureKeepsEarlierPollStamp(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 1)
	f.advance(3 * time.Hour)

	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)
	_, err = f.verifier.OnVerificationResponse(f.ctx, requestID, nil, []byte("no fix"))
	require.NoError(t, err)
	firstPoll := f.now

	f.advance(20 * time.Minute)
	f.dispatcher.err = errors.New("gateway down")
	_, err = f.verifier.IssueVerificationRequest(f.ctx, id)
	assert.ErrorIs(t, err, appshipment.ErrDispatchFailed)

	resp, err := f.registry.GetShipment(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PollsPerformed)
	require.NotNil(t, resp.LastPolledAt)
	assert.Equal(t, firstPoll, *resp.LastPolledAt)
}

func TestIssueVerificationRequest_ResponseDuringDispatch(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 2)

	var (
		result      *appshipment.VerificationResult
		callbackErr error
	)
	f.dispatcher.onIssue = func(q shipment.VerificationQuery) error {
		done := make(chan struct{})
		go func() {
			defer close(done)
			result, callbackErr = f.verifier.OnVerificationResponse(f.ctx, q.RequestID, shipment.EncodeLocationPayload(0, 0), nil)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("response blocked while its request was being sent")
		}
	}

	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)
	require.NoError(t, callbackErr)
	require.NotNil(t, result)
	assert.Equal(t, requestID, result.RequestID)
	assert.Equal(t, shipment.OutcomeArrived, result.Outcome)

	status, err := f.registry.GetShipmentStatus(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusArrived, status)
	assert.Equal(t, int64(2), f.balance(t, f.manufacturer))

	_, err = f.verifier.OnVerificationResponse(f.ctx, requestID, shipment.EncodeLocationPayload(0, 0), nil)
	assert.ErrorIs(t, err, shipment.ErrRequestNotFound)
}

func TestOnVerificationResponse_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		payload     []byte
		errPayload  []byte
		wantOutcome shipment.VerificationOutcome
		wantStatus  shipment.Status
	}{
		{
			name:        "inside geofence",
			payload:     shipment.EncodeLocationPayload(0, 0),
			wantOutcome: shipment.OutcomeArrived,
			wantStatus:  shipment.StatusArrived,
		},
		{
			name:        "on the boundary",
			payload:     shipment.EncodeLocationPayload(600, 800),
			wantOutcome: shipment.OutcomeArrived,
			wantStatus:  shipment.StatusArrived,
		},
		{
			name:        "outside geofence",
			payload:     shipment.EncodeLocationPayload(2000, 2000),
			wantOutcome: shipment.OutcomeOutsideGeofence,
			wantStatus:  shipment.StatusInTransit,
		},
		{
			name:        "oracle error",
			errPayload:  []byte("no fix"),
			wantOutcome: shipment.OutcomeOracleError,
			wantStatus:  shipment.StatusInTransit,
		},
		{
			name:        "malformed payload",
			payload:     []byte{1, 2, 3},
			wantOutcome: shipment.OutcomeMalformedPayload,
			wantStatus:  shipment.StatusInTransit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.inTransit(t, 5)
			requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
			require.NoError(t, err)

			result, err := f.verifier.OnVerificationResponse(f.ctx, requestID, tt.payload, tt.errPayload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Equal(t, id, result.ShipmentID)

			status, err := f.registry.GetShipmentStatus(f.ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)

			if tt.wantStatus == shipment.StatusArrived {
				assert.Equal(t, int64(5), f.balance(t, f.manufacturer))
				assert.Empty(t, f.pollSet(t))
			} else {
				assert.Equal(t, int64(0), f.balance(t, f.manufacturer))
				assert.Equal(t, []uint64{id}, f.pollSet(t))
			}
		})
	}
}

func TestOnVerificationResponse_ReplayRejected(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 2)
	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)

	_, err = f.verifier.OnVerificationResponse(f.ctx, requestID, nil, []byte("timeout"))
	require.NoError(t, err)

	_, err = f.verifier.OnVerificationResponse(f.ctx, requestID, shipment.EncodeLocationPayload(0, 0), nil)
	assert.ErrorIs(t, err, shipment.ErrRequestNotFound)

	_, err = f.verifier.OnVerificationResponse(f.ctx, "unknown", shipment.EncodeLocationPayload(0, 0), nil)
	assert.ErrorIs(t, err, shipment.ErrRequestNotFound)
}

func TestOnVerificationResponse_AfterForcedArrival(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 2)
	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)

	_, err = f.registry.ForceArrival(f.ctx, f.admin, id)
	require.NoError(t, err)

	_, err = f.verifier.OnVerificationResponse(f.ctx, requestID, shipment.EncodeLocationPayload(0, 0), nil)
	assert.ErrorIs(t, err, shipment.ErrRequestNotFound)
	assert.Equal(t, int64(2), f.balance(t, f.manufacturer), "custody must not be released twice")
}

func TestOnVerificationResponse_FailureAllowsNextPoll(t *testing.T) {
	f := newFixture(t)
	id := f.inTransit(t, 1)
	requestID, err := f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)

	_, err = f.verifier.OnVerificationResponse(f.ctx, requestID, shipment.EncodeLocationPayload(5000, 0), nil)
	require.NoError(t, err)

	f.advance(time.Minute)
	_, err = f.verifier.IssueVerificationRequest(f.ctx, id)
	require.NoError(t, err)

	resp, err := f.registry.GetShipment(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.PollsPerformed)
}
