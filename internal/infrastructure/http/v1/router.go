// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stregsystem/internal/domain/auth"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/heatmap"
	"stregsystem/internal/domain/kiosk"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/order"
	"stregsystem/internal/domain/payment"
	"stregsystem/internal/domain/physiology"
	"stregsystem/internal/domain/razzia"
	"stregsystem/internal/domain/report"
	"stregsystem/internal/domain/theme"
	"stregsystem/internal/infrastructure/http/v1/handlers"
	"stregsystem/internal/infrastructure/http/v1/middleware"
	"stregsystem/internal/infrastructure/storage/postgres"
	"stregsystem/pkg/logger"
)

// RouterConfig wires the domain services into the HTTP surface.
type RouterConfig struct {
	Logger *logger.Logger
	Pool   *postgres.Pool

	JWTValidator middleware.TokenValidator
	AuthService  *auth.Service

	Orders      *order.Service
	Sales       order.Repository
	Members     *member.Service
	Catalog     *catalog.Service
	CatalogRepo catalog.Repository
	Payments    *payment.Service
	Physiology  *physiology.Service
	Reports     *report.Service
	Razzias     *razzia.Service
	Heatmaps    *heatmap.Service
	Themes      *theme.Selector
	Kiosk       *kiosk.Service

	// CaffeineCategoryID backs the coffee-master flag; zero disables it.
	CaffeineCategoryID int64
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	health := router.Group("/health")
	handlers.NewHealthHandler(cfg.Pool).RegisterRoutes(health)

	// Room terminal endpoints are open: the kiosk is the trust boundary.
	saleHandler := handlers.NewSaleHandler(base, cfg.Orders, cfg.Members, cfg.Sales,
		cfg.Payments, cfg.Physiology, cfg.Reports, cfg.CaffeineCategoryID)
	saleHandler.RegisterRoutes(&router.RouterGroup)

	api := router.Group("/api")
	{
		memberHandler := handlers.NewMemberHandler(base, cfg.Members, cfg.Sales, cfg.Heatmaps)
		memberHandler.RegisterRoutes(api.Group("/member"))

		productHandler := handlers.NewProductHandler(base, cfg.Catalog, cfg.CatalogRepo, cfg.Themes)
		productHandler.RegisterRoutes(api.Group("/products"))

		if cfg.Kiosk != nil {
			handlers.NewKioskHandler(base, cfg.Kiosk).RegisterRoutes(api.Group("/kiosk"))
		}
	}

	registerAuthRoutes(router, base, cfg)
	registerAdminRoutes(router, base, cfg)

	return router
}

func registerAuthRoutes(router *gin.Engine, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
	public := router.Group("/api/auth")
	protected := router.Group("/api/auth")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	authHandler.RegisterRoutes(public, protected)
}

func registerAdminRoutes(router *gin.Engine, base *handlers.BaseHandler, cfg RouterConfig) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.Auth(cfg.JWTValidator))
	admin.Use(middleware.RequireCapability(auth.CapabilityStaff))

	adminHandler := handlers.NewAdminHandler(base, cfg.Payments, cfg.Reports)

	payments := admin.Group("/payments")
	payments.Use(middleware.RequireCapability(auth.CapabilityMobilePayTool))
	adminHandler.RegisterPaymentRoutes(payments)

	reports := admin.Group("/reports")
	reports.Use(middleware.RequireCapability(auth.CapabilitySalesReports))
	adminHandler.RegisterReportRoutes(reports)

	razzias := admin.Group("/razzia")
	razzias.Use(middleware.RequireCapability(auth.CapabilityHostRazzia))
	handlers.NewRazziaHandler(base, cfg.Razzias).RegisterRoutes(razzias)
}
