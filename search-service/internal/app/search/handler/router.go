package handler

import (
	"net/http"

	"facetsearch/pkg/logger"
	"facetsearch/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "search-service"

// SetupRoutes настраивает все маршруты Search Service
// Чтение и поиск публичные, изменения схемы и привязок только для manager и admin
func SetupRoutes(searchHandler *SearchHandler, catalogHandler *CatalogHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(serviceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	api.GET("/search", searchHandler.SearchGet)
	api.POST("/search", searchHandler.SearchPost)

	writers := []gin.HandlerFunc{authMiddleware.Authenticate(), authMiddleware.RequireRole("manager", "admin")}
	guarded := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writers...), h)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", catalogHandler.GetAllCategories)
		categories.GET("/:id", catalogHandler.GetCategory)
		categories.GET("/:id/filter-descriptions", catalogHandler.GetCategoryFilterDescriptions)
		categories.GET("/:id/filters", catalogHandler.GetCategoryFacets) // фасеты со значениями (кеш Redis)

		categories.POST("", guarded(catalogHandler.CreateCategory)...)
		categories.PUT("/:id", guarded(catalogHandler.UpdateCategory)...)
		categories.DELETE("/:id", guarded(catalogHandler.DeleteCategory)...) // каскадом, 409 при наличии товаров
	}

	descriptions := api.Group("/filter-descriptions")
	{
		descriptions.GET("", catalogHandler.GetAllFilterDescriptions)
		descriptions.GET("/:id", catalogHandler.GetFilterDescription)
		descriptions.GET("/:id/values", catalogHandler.GetDescriptionValues)
		descriptions.GET("/manager/:managerId", catalogHandler.GetManagerFilterDescriptions)

		descriptions.POST("", guarded(catalogHandler.CreateFilterDescription)...)
		descriptions.PUT("/:id", guarded(catalogHandler.UpdateFilterDescription)...)
		descriptions.DELETE("/:id", guarded(catalogHandler.DeleteFilterDescription)...)
	}

	filters := api.Group("/filters")
	{
		filters.GET("/:id", catalogHandler.GetFilterValue)
		filters.GET("/manager/:managerId", catalogHandler.GetManagerFilterValues)

		filters.POST("", guarded(catalogHandler.CreateFilterValue)...)
		filters.PUT("/:id", guarded(catalogHandler.UpdateFilterValue)...)
		filters.DELETE("/:id", guarded(catalogHandler.DeleteFilterValue)...)
	}

	filterProducts := api.Group("/filter-products")
	{
		filterProducts.GET("/product/:productId", catalogHandler.GetProductFilters)
		filterProducts.GET("/category/:categoryId", catalogHandler.GetCategoryFilterProducts)

		filterProducts.POST("", guarded(catalogHandler.AttachFilter)...)
		filterProducts.DELETE("", guarded(catalogHandler.DetachFilter)...)
	}

	return router
}
