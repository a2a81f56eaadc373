package router

import (
	"time"

	"retailpos/internal/config"
	"retailpos/internal/handler"
	"retailpos/internal/infra"
	"retailpos/internal/middleware"
	"retailpos/internal/repository"
	"retailpos/internal/service"
	"retailpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	businessRepo := repository.NewBusinessRepository(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	ledgerSvc := service.NewLedgerService(productRepo, movementRepo)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, productRepo, businessRepo, userRepo)
	authSvc := service.NewAuthService(userRepo, subscriptionSvc, cfg)
	productSvc := service.NewProductService(
		productRepo, categoryRepo, ledgerSvc, subscriptionSvc,
		rdb, time.Duration(cfg.PriceCacheTTLSec)*time.Second,
	)
	categorySvc := service.NewCategoryService(categoryRepo)
	saleSvc := service.NewSaleService(saleRepo, productRepo, ledgerSvc, dispatcher)
	reportSvc := service.NewReportService(reportRepo, rdb, time.Duration(cfg.ReportCacheTTLMin)*time.Minute)
	expenseSvc := service.NewExpenseService(expenseRepo)
	businessSvc := service.NewBusinessService(businessRepo, userRepo, subscriptionRepo, subscriptionSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	businessH := handler.NewBusinessHandler(businessSvc)
	usersH := handler.NewUsersHandler(authSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	productsH := handler.NewProductsHandler(productSvc)
	priceH := handler.NewPriceCheckHandler(productSvc)
	stockH := handler.NewStockHandler(ledgerSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	reportsH := handler.NewReportsHandler(reportSvc)
	expensesH := handler.NewExpensesHandler(expenseSvc)
	subscriptionsH := handler.NewSubscriptionsHandler(subscriptionSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Tenant signup — public, no auth yet
	r.POST("/v1/businesses", businessH.Register)

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Price check — no auth, used by in-store kiosks
	r.GET("/v1/price/:barcode", priceH.GetByBarcode)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, manager, admin — declared per-endpoint
		anyStaff := middleware.RequireRole("cashier", "manager", "admin")
		managerUp := middleware.RequireRole("manager", "admin")
		adminOnly := middleware.RequireRole("admin")

		v1.POST("/sales", anyStaff, salesH.Register)
		v1.GET("/sales", anyStaff, salesH.List)
		v1.GET("/sales/:id", anyStaff, salesH.Get)
		v1.POST("/sales/:id/refund", managerUp, salesH.Refund)
		v1.POST("/sales/:id/void", managerUp, salesH.Void)

		// Catalog reads are open to every role (POS terminals sync the catalog)
		v1.GET("/products", anyStaff, productsH.List)
		v1.GET("/products/:id", anyStaff, productsH.Get)
		prods := v1.Group("/products", managerUp)
		{
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Deactivate)
			prods.PATCH("/:id/reactivate", productsH.Reactivate)
			prods.PATCH("/:id/thresholds/:location_id", productsH.UpdateThresholds)
		}

		v1.GET("/categories", anyStaff, categoriesH.List)
		cats := v1.Group("/categories", managerUp)
		{
			cats.POST("", categoriesH.Create)
			cats.PUT("/:id", categoriesH.Update)
			cats.DELETE("/:id", categoriesH.Deactivate)
		}

		stock := v1.Group("/stock", managerUp)
		{
			stock.POST("/movements", stockH.RecordMovement)
			stock.GET("/movements", stockH.ListMovements)
			stock.GET("/alerts", stockH.LowStockAlerts)
			stock.GET("/verify/:id", stockH.VerifySnapshot)
		}

		reports := v1.Group("/reports", managerUp)
		{
			reports.GET("/sales", reportsH.Sales)
			reports.GET("/inventory", reportsH.Inventory)
		}

		expenses := v1.Group("/expenses", managerUp)
		{
			expenses.POST("", expensesH.Create)
			expenses.GET("", expensesH.List)
			expenses.GET("/summary", expensesH.Summary)
			expenses.PUT("/:id", expensesH.Update)
			expenses.DELETE("/:id", expensesH.Delete)
		}

		users := v1.Group("/users", adminOnly)
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}

		v1.GET("/business", anyStaff, businessH.Get)
		v1.GET("/business/locations", anyStaff, businessH.ListLocations)
		locs := v1.Group("/business/locations", adminOnly)
		{
			locs.POST("", businessH.CreateLocation)
			locs.PUT("/:id", businessH.UpdateLocation)
		}

		sub := v1.Group("/subscription", adminOnly)
		{
			sub.GET("", subscriptionsH.Get)
			sub.GET("/usage", subscriptionsH.Usage)
			sub.POST("/plan", subscriptionsH.ChangePlan)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
