// Package oracle connects shipment verification to the off-chain location
// gateway: outbound request dispatch and inbound callback authentication.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/supplytrace/backend/internal/domain/shipment"
	"go.uber.org/zap"
)

// Dispatcher errors
var (
	ErrMissingEndpoint    = errors.New("oracle: missing gateway endpoint")
	ErrGatewayUnavailable = errors.New("oracle: gateway unavailable")
	ErrGatewayRejected    = errors.New("oracle: gateway rejected request")
	ErrRequestIDMismatch  = errors.New("oracle: gateway answered for a different request id")
)

const maxResponseBytes = 1 << 16

// gatewayRequest is the body POSTed to the verification gateway. Args carries
// the shipment id in decimal, which is what the location script reads. The
// gateway echoes RequestID in its callback.
type gatewayRequest struct {
	RequestID      string   `json:"request_id"`
	Source         string   `json:"source"`
	Args           []string `json:"args"`
	SubscriptionID uint64   `json:"subscription_id"`
	GasLimit       uint32   `json:"gas_limit"`
	RoutingID      string   `json:"routing_id"`
}

type gatewayResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error,omitempty"`
}

// HTTPDispatcher sends verification queries to a gateway over HTTP
type HTTPDispatcher struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPDispatcher creates a dispatcher posting to endpoint
func NewHTTPDispatcher(endpoint string, timeout time.Duration, logger *zap.Logger) (*HTTPDispatcher, error) {
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDispatcher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// IssueRequest posts the query. Any 2xx answer means the gateway accepted it.
func (d *HTTPDispatcher) IssueRequest(ctx context.Context, query shipment.VerificationQuery) error {
	body, err := json.Marshal(gatewayRequest{
		RequestID:      query.RequestID,
		Source:         query.Source,
		Args:           []string{strconv.FormatUint(query.ShipmentID, 10)},
		SubscriptionID: query.SubscriptionID,
		GasLimit:       query.GasLimit,
		RoutingID:      query.RoutingID,
	})
	if err != nil {
		return fmt.Errorf("oracle: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("oracle: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("oracle: failed to read response: %w", err)
	}

	var out gatewayResponse
	decodeErr := json.Unmarshal(respBody, &out)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		if decodeErr == nil && out.Error != "" {
			return fmt.Errorf("%w: %s", ErrGatewayRejected, out.Error)
		}
		return fmt.Errorf("%w: HTTP %d", ErrGatewayRejected, resp.StatusCode)
	}
	// an empty body is an acceptance; an echoed id must match
	if decodeErr == nil && out.RequestID != "" && out.RequestID != query.RequestID {
		return fmt.Errorf("%w: sent %s, got %s", ErrRequestIDMismatch, query.RequestID, out.RequestID)
	}

	d.logger.Debug("Verification request dispatched",
		zap.Uint64("shipment_id", query.ShipmentID),
		zap.String("request_id", query.RequestID),
	)
	return nil
}

var _ shipment.VerificationDispatcher = (*HTTPDispatcher)(nil)
