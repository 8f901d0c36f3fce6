// Package api assembles the gin router over the billing engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
	"github.com/rockyway/rephlo-sites-sub016/internal/http/api/handlers"
)

// NewRouter builds the HTTP surface: admin rate-table and settings management and
// the billing-layer endpoints. baseCfg is the file-config baseline DB settings
// override on refresh.
func NewRouter(db *gorm.DB, engine *billing.Engine, baseCfg billing.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	prices := handlers.NewVendorPriceHandler(db)
	margins := handlers.NewMarginConfigHandler(db)
	billingSettings := handlers.NewSettingsHandler(db, engine, baseCfg)
	preview := handlers.NewBillingPreviewHandler(engine)
	prorations := handlers.NewProrationHandler(db, engine)

	admin := router.Group("/v1/admin")
	{
		admin.GET("/vendor-prices", prices.List)
		admin.POST("/vendor-prices", prices.Create)
		admin.GET("/margin-configs", margins.List)
		admin.POST("/margin-configs", margins.Create)
		admin.POST("/margin-configs/:id/disable", margins.Disable)
		admin.GET("/settings", billingSettings.Get)
		admin.PUT("/settings", billingSettings.Update)
	}

	v1 := router.Group("/v1/billing")
	{
		v1.POST("/preview", preview.Preview)
		v1.GET("/prorations", prorations.List)
		v1.POST("/prorations", prorations.Calculate)
		v1.POST("/prorations/:id/complete", prorations.Complete)
		v1.POST("/prorations/:id/reverse", prorations.Reverse)
	}

	return router
}
