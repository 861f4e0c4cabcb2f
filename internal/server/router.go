package server

import (
	"github.com/gin-gonic/gin"
)

// buildRouter wires the API routes
func (s *HTTPServer) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestMetrics())
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.POST("/users", s.handleCreateUser)
	router.GET("/users/:id", s.handleGetUser)
	router.PUT("/users/:id", s.handleUpdateUser)
	router.POST("/users/:id/state/rebuild", s.handleRebuildState)

	router.POST("/logs/:id", s.handleSubmitLog)
	router.GET("/logs/:id", s.handleListLogs)

	router.GET("/vulnerability/:id", s.handleVulnerability)
	router.GET("/vulnerability/:id/history", s.handleHistory)

	router.POST("/simulate/:id", s.handleSimulate)
	router.GET("/interventions/:id", s.handleInterventions)

	router.GET("/export/:id/anonymized", s.handleExport)

	return router
}
