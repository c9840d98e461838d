package shipment

import (
	"context"
	"encoding/binary"
	"math/big"
	"time"
)

// LocationPayloadSize is the length of a successful verification payload:
// two 32-byte big-endian two's-complement words (latitude, longitude)
const LocationPayloadSize = 64

const wordSize = 32

var (
	twoTo255 = new(big.Int).Lsh(big.NewInt(1), 255)
	twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

// Location is a reported position at 1e6 fixed-point scale.
// Values are unbounded because they come from an external service.
type Location struct {
	Lat  *big.Int
	Long *big.Int
}

// DecodeLocationPayload decodes a verification response payload
func DecodeLocationPayload(payload []byte) (Location, error) {
	if len(payload) != LocationPayloadSize {
		return Location{}, ErrMalformedLocation
	}
	return Location{
		Lat:  decodeSignedWord(payload[:wordSize]),
		Long: decodeSignedWord(payload[wordSize:]),
	}, nil
}

// EncodeLocationPayload encodes a position the way the verification service does
func EncodeLocationPayload(lat, long int64) []byte {
	out := make([]byte, LocationPayloadSize)
	encodeSignedWord(out[:wordSize], big.NewInt(lat))
	encodeSignedWord(out[wordSize:], big.NewInt(long))
	return out
}

func decodeSignedWord(word []byte) *big.Int {
	v := new(big.Int).SetBytes(word)
	if v.Cmp(twoTo255) >= 0 {
		v.Sub(v, twoTo256)
	}
	return v
}

func encodeSignedWord(dst []byte, v *big.Int) {
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, twoTo256)
	}
	u.FillBytes(dst)
}

func bigFromInt64(v int64) *big.Int {
	return big.NewInt(v)
}

// EncodeUpkeepPayload encodes a shipment id for the scheduled-polling service
func EncodeUpkeepPayload(id uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, id)
	return out
}

// DecodeUpkeepPayload decodes a shipment id produced by EncodeUpkeepPayload
func DecodeUpkeepPayload(payload []byte) (uint64, error) {
	if len(payload) != 8 {
		return 0, ErrInvalidUpkeepData
	}
	return binary.BigEndian.Uint64(payload), nil
}

// VerificationRequest maps an outstanding external request to its shipment
type VerificationRequest struct {
	RequestID  string
	ShipmentID uint64
	IssuedAt   time.Time
}

// VerificationQuery is the request sent to the external verification service.
// RequestID is allocated and stored before the query leaves the process, so a
// response can never arrive ahead of its mapping.
type VerificationQuery struct {
	RequestID      string
	ShipmentID     uint64
	Source         string
	SubscriptionID uint64
	GasLimit       uint32
	RoutingID      string
}

// VerificationDispatcher sends location queries to the external verification
// service. The response is delivered later through the verification callback,
// keyed by query.RequestID.
type VerificationDispatcher interface {
	IssueRequest(ctx context.Context, query VerificationQuery) error
}

// VerificationOutcome describes what a verification response did
type VerificationOutcome string

const (
	OutcomeArrived          VerificationOutcome = "ARRIVED"
	OutcomeOutsideGeofence  VerificationOutcome = "OUTSIDE_GEOFENCE"
	OutcomeOracleError      VerificationOutcome = "ORACLE_ERROR"
	OutcomeMalformedPayload VerificationOutcome = "MALFORMED_PAYLOAD"
	OutcomeStale            VerificationOutcome = "STALE"
	OutcomeDispatchFailed   VerificationOutcome = "DISPATCH_FAILED"
)

// ChangedState reports whether the outcome moved the shipment
func (o VerificationOutcome) ChangedState() bool {
	return o == OutcomeArrived
}
