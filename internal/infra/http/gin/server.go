package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"equiprent/internal/infra/config"
	"equiprent/internal/infra/obs"
)

type QuotationHTTP interface {
	Create(c *gin.Context)
	Update(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Send(c *gin.Context)
	Confirm(c *gin.Context)
	Expire(c *gin.Context)
	Delete(c *gin.Context)
	ExpireDue(c *gin.Context)
}

type ProductHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	VendorList(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Publish(c *gin.Context)
	Unpublish(c *gin.Context)
	UploadImage(c *gin.Context)
}

type OrderHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
}

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type Handlers struct {
	Quotation      QuotationHTTP
	Product        ProductHTTP
	Order          OrderHTTP
	Auth           AuthHTTP
	AuthMiddleware gin.HandlerFunc
	Metrics        http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(securityHeaders(cfg))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Auth != nil {
		authGroup := api.Group("/auth")
		authGroup.Use(rateLimit(cfg.RateLimitAuth, time.Minute))
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", h.Auth.Me)
	}
	if h.Quotation != nil {
		q := api.Group("/quotations")
		q.POST("", h.Quotation.Create)
		q.GET("", h.Quotation.List)
		q.GET("/:id", h.Quotation.Get)
		q.PUT("/:id", h.Quotation.Update)
		q.DELETE("/:id", h.Quotation.Delete)
		q.POST("/:id/send", h.Quotation.Send)
		q.POST("/:id/confirm", h.Quotation.Confirm)
		q.POST("/:id/expire", h.Quotation.Expire)
		api.POST("/admin/quotations/expire-due", h.Quotation.ExpireDue)
	}
	if h.Product != nil {
		api.GET("/products", h.Product.Catalog)
		api.GET("/products/:id", h.Product.Get)
		vendor := api.Group("/vendor/products")
		vendor.GET("", h.Product.VendorList)
		vendor.POST("", h.Product.Create)
		vendor.PUT("/:id", h.Product.Update)
		vendor.POST("/:id/publish", h.Product.Publish)
		vendor.POST("/:id/unpublish", h.Product.Unpublish)
		vendor.POST("/:id/images", h.Product.UploadImage)
	}
	if h.Order != nil {
		api.GET("/orders", h.Order.List)
		api.GET("/orders/:id", h.Order.Get)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func securityHeaders(cfg config.Config) gin.HandlerFunc {
	mw := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      cfg.IsDev(),
	})
	return func(c *gin.Context) {
		if err := mw.Process(c.Writer, c.Request); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "request rejected"})
			return
		}
		// secure may have answered with a redirect.
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}

// rateLimit adapts an httprate limiter keyed by client IP to gin.
func rateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
		}),
	)
	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
