package router_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appescrow "github.com/supplytrace/backend/internal/application/escrow"
	appidentity "github.com/supplytrace/backend/internal/application/identity"
	appledger "github.com/supplytrace/backend/internal/application/ledger"
	appproduct "github.com/supplytrace/backend/internal/application/product"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/auth"
	"github.com/supplytrace/backend/internal/infrastructure/config"
	"github.com/supplytrace/backend/internal/infrastructure/oracle"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/memory"
	"github.com/supplytrace/backend/internal/interfaces/http/dto"
	"github.com/supplytrace/backend/internal/interfaces/http/handler"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
	"github.com/supplytrace/backend/internal/interfaces/http/router"
)

const material uint64 = 7

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

type api struct {
	t            *testing.T
	engine       *gin.Engine
	signer       *oracle.CallbackSigner
	now          time.Time
	admin        uuid.UUID
	supplier     uuid.UUID
	manufacturer uuid.UUID
	tokens       map[uuid.UUID]string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidator())

	a := &api{
		t:            t,
		engine:       gin.New(),
		signer:       oracle.NewCallbackSigner("callback-secret"),
		now:          time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		admin:        uuid.New(),
		supplier:     uuid.New(),
		manufacturer: uuid.New(),
		tokens:       map[uuid.UUID]string{},
	}
	clock := func() time.Time { return a.now }

	store := memory.NewStore()
	shipments := memory.NewShipmentScope(store)

	registry := appshipment.NewRegistryService(shipments, store, nil)
	registry.SetClock(clock)
	verifier := appshipment.NewVerifierService(shipments, oracle.NewMemoryDispatcher(), appshipment.VerifierConfig{Source: "gps"}, nil)
	verifier.SetClock(clock)
	upkeep := appshipment.NewUpkeepService(shipments, verifier, nil)
	upkeep.SetClock(clock)
	assembler := appproduct.NewAssemblerService(memory.NewProductScope(store), store, nil)
	assembler.SetClock(clock)
	escrows := appescrow.NewEscrowService(memory.NewEscrowScope(store), nil)
	escrows.SetClock(clock)
	roles := appidentity.NewRoleService(memory.NewIdentityScope(store), store, nil)
	require.NoError(t, roles.BootstrapAdmin(context.Background(), a.admin))

	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "supplytrace-test", AccessTokenExpiration: time.Hour})
	for _, account := range []uuid.UUID{a.admin, a.supplier, a.manufacturer} {
		token, _, err := jwtService.IssueToken(account)
		require.NoError(t, err)
		a.tokens[account] = token
	}

	a.engine.Use(middleware.RequestID())
	router.Setup(a.engine, router.Handlers{
		Shipment:     handler.NewShipmentHandler(registry),
		Verification: handler.NewVerificationHandler(upkeep, verifier, a.signer),
		Product:      handler.NewProductHandler(assembler, appproduct.NewProvenanceService(memory.NewProductScope(store))),
		Escrow:       handler.NewEscrowHandler(escrows),
		Role:         handler.NewRoleHandler(roles),
		Ledger:       handler.NewLedgerHandler(appledger.NewLedgerService(memory.NewLedgerScope(store), store, nil)),
		System:       handler.NewSystemHandler("supplytrace", "test", map[string]handler.HealthCheck{"store": func(context.Context) error { return nil }}),
	}, router.Guards{
		Auth:  middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{JWTService: jwtService}),
		Admin: middleware.RequireRole(middleware.RoleConfig{Gate: store}, identity.RoleAdmin),
	})
	return a
}

func (a *api) do(method, path string, as uuid.UUID, body any, header ...string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token, ok := a.tokens[as]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (a *api) expect(want int, method, path string, as uuid.UUID, body any, out any) envelope {
	a.t.Helper()
	w, env := a.do(method, path, as, body)
	require.Equal(a.t, want, w.Code, "%s %s: %s", method, path, w.Body.String())
	if out != nil {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func TestAPI_ShipmentLifecycle(t *testing.T) {
	a := newAPI(t)

	a.expect(http.StatusCreated, http.MethodPost, "/api/v1/roles/grant", a.admin,
		gin.H{"role": "SUPPLIER", "account": a.supplier}, nil)
	a.expect(http.StatusCreated, http.MethodPost, "/api/v1/roles/grant", a.admin,
		gin.H{"role": "MANUFACTURER", "account": a.manufacturer}, nil)
	a.expect(http.StatusOK, http.MethodPost, "/api/v1/ledger/materials/mint", a.admin,
		gin.H{"account": a.supplier, "material_id": material, "amount": 10}, nil)
	a.expect(http.StatusOK, http.MethodPost, "/api/v1/ledger/payments/deposit", a.admin,
		gin.H{"account": a.manufacturer, "amount": "100"}, nil)

	var created appshipment.ShipmentResponse
	a.expect(http.StatusCreated, http.MethodPost, "/api/v1/shipments", a.supplier, gin.H{
		"destination_lat":  0,
		"destination_long": 0,
		"radius_meters":    1000,
		"manufacturer":     a.manufacturer,
		"material_id":      material,
		"quantity":         2,
		"expected_arrival": a.now.Add(2 * time.Hour),
	}, &created)
	assert.Equal(t, "CREATED", created.Status)
	base := fmt.Sprintf("/api/v1/shipments/%d", created.ID)

	a.expect(http.StatusCreated, http.MethodPost, base+"/escrow", a.manufacturer,
		gin.H{"supplier": a.supplier, "amount": "40"}, nil)
	a.expect(http.StatusOK, http.MethodPost, base+"/start", a.supplier, nil, nil)

	// nothing is due before the expected arrival
	var check handler.CheckUpkeepResponse
	a.expect(http.StatusOK, http.MethodPost, "/api/v1/upkeep/check", uuid.Nil, nil, &check)
	assert.False(t, check.UpkeepNeeded)

	a.now = a.now.Add(3 * time.Hour)
	a.expect(http.StatusOK, http.MethodPost, "/api/v1/upkeep/check", uuid.Nil, nil, &check)
	require.True(t, check.UpkeepNeeded)
	assert.Equal(t, "0x"+hex.EncodeToString(shipment.EncodeUpkeepPayload(created.ID)), check.PerformData)

	var performed handler.PerformUpkeepResponse
	a.expect(http.StatusOK, http.MethodPost, "/api/v1/upkeep/perform", uuid.Nil,
		gin.H{"perform_data": check.PerformData}, &performed)
	require.NotEmpty(t, performed.RequestID)

	location := shipment.EncodeLocationPayload(0, 0)
	callback := gin.H{"request_id": performed.RequestID, "response": "0x" + hex.EncodeToString(location)}

	w, env := a.do(http.MethodPost, "/api/v1/oracle/callback", uuid.Nil, callback)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeBadSignature, env.Error.Code)

	w, env = a.do(http.MethodPost, "/api/v1/oracle/callback", uuid.Nil, callback,
		oracle.SignatureHeader, a.signer.Sign(performed.RequestID, location, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result appshipment.VerificationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, shipment.OutcomeArrived, result.Outcome)

	var status handler.StatusResponse
	a.expect(http.StatusOK, http.MethodGet, base+"/status", a.supplier, nil, &status)
	assert.Equal(t, "ARRIVED", status.Status)

	var settled appescrow.EscrowResponse
	a.expect(http.StatusOK, http.MethodPost, base+"/escrow/release", a.manufacturer, nil, &settled)
	assert.True(t, settled.Released)

	var supplierFunds appledger.PaymentBalance
	a.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/v1/ledger/payments/%s", a.supplier), a.admin, nil, &supplierFunds)
	assert.Equal(t, "40", supplierFunds.Balance.String())

	var products []appproduct.ProductResponse
	a.expect(http.StatusCreated, http.MethodPost, base+"/products", a.manufacturer,
		gin.H{"metadata": []string{"unit-a", "unit-b"}}, &products)
	require.Len(t, products, 2)

	// metadata resolves without a token and is served unwrapped
	w, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%d/metadata", products[0].ID), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var meta appproduct.ProvenanceMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, created.ID, meta.ShipmentID)
	assert.Equal(t, a.supplier, meta.Supplier)

	// a second assembly of the same shipment is a state conflict
	env = a.expect(http.StatusConflict, http.MethodPost, base+"/products", a.manufacturer,
		gin.H{"metadata": []string{"unit-a", "unit-b"}}, nil)
	assert.Equal(t, "STATE", env.Error.Kind)
}

func TestAPI_AccessControl(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodGet, "/api/v1/shipments", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	// only admins grant roles
	env = a.expect(http.StatusForbidden, http.MethodPost, "/api/v1/roles/grant", a.supplier,
		gin.H{"role": "SUPPLIER", "account": a.supplier}, nil)
	assert.Equal(t, "AUTHORIZATION", env.Error.Kind)

	// an account without the supplier role cannot register shipments
	a.expect(http.StatusForbidden, http.MethodPost, "/api/v1/shipments", a.supplier, gin.H{
		"radius_meters":    1000,
		"manufacturer":     a.manufacturer,
		"material_id":      material,
		"quantity":         1,
		"expected_arrival": a.now.Add(2 * time.Hour),
	}, nil)
}

func TestAPI_Validation(t *testing.T) {
	a := newAPI(t)

	env := a.expect(http.StatusBadRequest, http.MethodPost, "/api/v1/shipments", a.supplier,
		gin.H{"manufacturer": "not-a-uuid", "quantity": 0}, nil)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	assert.NotEmpty(t, env.Error.Details)

	a.expect(http.StatusBadRequest, http.MethodGet, "/api/v1/shipments/abc", a.supplier, nil, nil)
	a.expect(http.StatusNotFound, http.MethodGet, "/api/v1/shipments/99", a.supplier, nil, nil)

	a.expect(http.StatusBadRequest, http.MethodPost, "/api/v1/upkeep/perform", uuid.Nil,
		gin.H{"perform_data": "0xzz"}, nil)
	a.expect(http.StatusBadRequest, http.MethodPost, "/api/v1/ledger/payments/deposit", a.admin,
		gin.H{"account": a.manufacturer, "amount": "-3"}, nil)
}

func TestAPI_Probes(t *testing.T) {
	a := newAPI(t)

	var health handler.HealthResponse
	a.expect(http.StatusOK, http.MethodGet, "/health", uuid.Nil, nil, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Checks["store"])

	var ping handler.PingResponse
	a.expect(http.StatusOK, http.MethodGet, "/api/v1/system/ping", uuid.Nil, nil, &ping)
	assert.Equal(t, "pong", ping.Message)

	// the outbox admin group is absent without an outbox
	w, _ := a.do(http.MethodGet, "/api/v1/admin/outbox/stats", a.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
