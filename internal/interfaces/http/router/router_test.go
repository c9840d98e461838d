package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/test/ping").Code)
}

func TestRouterUse_AppliesToEveryGroup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Header("X-Api", "v1")
		c.Next()
	})

	a := NewDomainGroup("a", "/a").GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	b := NewDomainGroup("b", "/b").GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.Register(a).Register(b).Setup()

	for _, path := range []string{"/api/v1/a", "/api/v1/b"} {
		w := serve(engine, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "v1", w.Header().Get("X-Api"), path)
	}
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("shipment", "/shipments")
		assert.Equal(t, "shipment", g.Name())
		assert.Equal(t, "/shipments", g.Prefix())
	})

	t.Run("registers each method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) }).
			POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) }).
			DELETE("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			want   int
		}{
			{http.MethodGet, "/api/v1/test/items", http.StatusOK},
			{http.MethodPost, "/api/v1/test/items", http.StatusCreated},
			{http.MethodDelete, "/api/v1/test/items/123", http.StatusNoContent},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("group middleware does not leak to siblings", func(t *testing.T) {
		engine := gin.New()
		guarded := NewDomainGroup("guarded", "/guarded").Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		})
		guarded.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
		open := NewDomainGroup("open", "/open")
		open.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })

		api := engine.Group("/api/v1")
		guarded.RegisterRoutes(api)
		open.RegisterRoutes(api)

		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/guarded").Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/open").Code)
	})

	t.Run("subgroups inherit middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("product", "/products").Use(func(c *gin.Context) {
			c.Header("X-Parent", "yes")
			c.Next()
		})
		g.Group("read", "/read").GET("", func(c *gin.Context) { c.String(http.StatusOK, "read") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/products/read")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "read", w.Body.String())
		assert.Equal(t, "yes", w.Header().Get("X-Parent"))
	})
}
