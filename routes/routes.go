package routes

import (
	"net/http"

	"quizhall/handlers"
	"quizhall/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	adminHandler *handlers.AdminHandler,
	hallHandler *handlers.HallHandler,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(jwtSecret))
		{
			admin.POST("/fixtures", adminHandler.LoadFixture)
			admin.POST("/fixtures/default", adminHandler.LoadDefaultFixture)
			admin.GET("/score", adminHandler.GetScore)
			admin.GET("/results", adminHandler.GetResults)
			admin.POST("/results/show", adminHandler.ShowResults)
			admin.GET("/export.csv", adminHandler.ExportCSV)
			admin.POST("/broadcast", adminHandler.Broadcast)
			admin.POST("/partner-question", adminHandler.PartnerQuestion)
		}
	}

	// WebSocket endpoint for the hall display
	router.GET("/ws/hall", hallHandler.Serve)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
