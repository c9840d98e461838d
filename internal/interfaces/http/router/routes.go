package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supplytrace/backend/internal/interfaces/http/handler"
)

// Handlers bundles every HTTP handler served by the API. Outbox is nil when
// the store keeps no outbox.
type Handlers struct {
	Shipment     *handler.ShipmentHandler
	Verification *handler.VerificationHandler
	Product      *handler.ProductHandler
	Escrow       *handler.EscrowHandler
	Role         *handler.RoleHandler
	Ledger       *handler.LedgerHandler
	Outbox       *handler.OutboxHandler
	System       *handler.SystemHandler
	Metrics      http.Handler
}

// Guards are the access checks applied per route group
type Guards struct {
	// Auth authenticates the caller's bearer token
	Auth gin.HandlerFunc
	// Admin requires the ADMIN role and must follow Auth
	Admin gin.HandlerFunc
}

// Setup registers the public probes and the versioned API on engine.
//
// The upkeep and oracle groups are public: perform re-validates its payload
// and the callback is authenticated by signature.
func Setup(engine *gin.Engine, h Handlers, guards Guards) {
	engine.GET("/health", h.System.Health)
	if h.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.Metrics))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))

	system := NewDomainGroup("system", "/system")
	system.GET("/ping", h.System.Ping)
	system.GET("/info", h.System.GetSystemInfo)

	upkeep := NewDomainGroup("upkeep", "/upkeep")
	upkeep.POST("/check", h.Verification.CheckUpkeep)
	upkeep.POST("/perform", h.Verification.PerformUpkeep)

	oracle := NewDomainGroup("oracle", "/oracle")
	oracle.POST("/callback", h.Verification.OracleCallback)

	shipments := NewDomainGroup("shipment", "/shipments").Use(guards.Auth)
	shipments.GET("", h.Shipment.List)
	shipments.POST("", h.Shipment.Create)
	shipments.GET("/:id", h.Shipment.Get)
	shipments.GET("/:id/status", h.Shipment.GetStatus)
	shipments.POST("/:id/start", h.Shipment.StartDelivery)
	shipments.POST("/:id/force-arrival", h.Shipment.ForceArrival)
	shipments.POST("/:id/manufacturer-arrival", h.Shipment.ManufacturerForceArrival)
	shipments.GET("/:id/products", h.Product.ListByShipment)
	shipments.POST("/:id/products", h.Product.Assemble)
	shipments.GET("/:id/escrow", h.Escrow.Get)
	shipments.POST("/:id/escrow", h.Escrow.Create)
	shipments.POST("/:id/escrow/release", h.Escrow.Release)
	shipments.POST("/:id/escrow/refund", h.Escrow.Refund)

	// Metadata is public so the product URI resolves without a token
	products := NewDomainGroup("product", "/products")
	products.GET("/:id/metadata", h.Product.Metadata)
	products.Group("product-read", "").Use(guards.Auth).GET("/:id", h.Product.Get)

	roles := NewDomainGroup("identity", "/roles").Use(guards.Auth)
	roles.GET("/:account", h.Role.List)
	roles.POST("/grant", h.Role.Grant)
	roles.POST("/revoke", h.Role.Revoke)

	ledger := NewDomainGroup("ledger", "/ledger").Use(guards.Auth)
	ledger.GET("/materials/:account/:material", h.Ledger.MaterialBalance)
	ledger.GET("/payments/:account", h.Ledger.PaymentBalance)
	ledger.GET("/assets/:id", h.Ledger.UniqueAsset)
	ledger.POST("/materials/mint", h.Ledger.MintMaterial)
	ledger.POST("/payments/deposit", h.Ledger.DepositFunds)

	r.Register(system).
		Register(upkeep).
		Register(oracle).
		Register(shipments).
		Register(products).
		Register(roles).
		Register(ledger)

	if h.Outbox != nil {
		outbox := NewDomainGroup("outbox", "/admin/outbox").Use(guards.Auth, guards.Admin)
		outbox.GET("/dead", h.Outbox.ListDead)
		outbox.GET("/stats", h.Outbox.Stats)
		outbox.GET("/:id", h.Outbox.Get)
		outbox.POST("/:id/retry", h.Outbox.Retry)
		outbox.POST("/retry-all", h.Outbox.RetryAll)
		r.Register(outbox)
	}

	r.Setup()
}
