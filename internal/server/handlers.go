package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/engine"
	"github.com/smehta/migraine-server/internal/protocol"
)

const (
	defaultLogsLimit   = 30
	maxLogsLimit       = 365
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// writeError maps the error taxonomy onto HTTP status codes
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	var validationErr *apperr.ValidationError
	var notFoundErr *apperr.NotFoundError
	var conflictErr *apperr.ConflictError
	var computationErr *apperr.ComputationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.As(err, &computationErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": computationErr.Error()})
	case errors.Is(err, engine.ErrMaxHandlesReached):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func pathUserID(c *gin.Context) (string, error) {
	return protocol.ParseUserID(c.Param("id"))
}

// handleHealth reports dependency liveness
func (s *HTTPServer) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	overall := "ok"
	dbStatus := "up"
	redisStatus := "up"

	if err := s.db.Ping(); err != nil {
		dbStatus = "down"
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	if err := s.states.Ping(ctx); err != nil {
		redisStatus = "down"
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	stats := s.engine.HandleStats()
	c.JSON(status, gin.H{
		"status":         overall,
		"database":       dbStatus,
		"redis":          redisStatus,
		"active_handles": stats.ResidentHandles,
	})
}

// handleCreateUser registers a new user profile
func (s *HTTPServer) handleCreateUser(c *gin.Context) {
	var req protocol.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	profile, err := s.engine.CreateUser(&req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, protocol.NewUserResponse(profile))
}

// handleGetUser returns a user profile
func (s *HTTPServer) handleGetUser(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	profile, err := s.engine.GetUser(userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, protocol.NewUserResponse(profile))
}

// handleUpdateUser applies a partial profile update
func (s *HTTPServer) handleUpdateUser(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req protocol.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	profile, err := s.engine.UpdateUser(userID, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, protocol.NewUserResponse(profile))
}

// handleSubmitLog ingests one daily log and returns the refreshed
// estimate
func (s *HTTPServer) handleSubmitLog(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var sub protocol.LogSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	accepted, err := s.engine.SubmitLog(c.Request.Context(), userID, &sub)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, accepted)
}

// handleListLogs returns the most recent logs, newest first
func (s *HTTPServer) handleListLogs(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	limit, err := boundedIntQuery(c, "limit", defaultLogsLimit, maxLogsLimit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	logs, err := s.engine.ListLogs(userID, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]*protocol.LogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, protocol.NewLogResponse(&logs[i]))
	}

	c.JSON(http.StatusOK, gin.H{"logs": items, "count": len(items)})
}

// handleVulnerability returns the current estimate
func (s *HTTPServer) handleVulnerability(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	est, err := s.engine.Vulnerability(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, protocol.VulnerabilityResponse{
		VulnerabilityScore: est.Score,
		Confidence:         est.Confidence,
	})
}

// handleHistory returns persisted estimates for the trailing window
func (s *HTTPServer) handleHistory(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	days, err := boundedIntQuery(c, "days", defaultHistoryDays, maxHistoryDays)
	if err != nil {
		s.writeError(c, err)
		return
	}

	entries, err := s.engine.History(userID, days)
	if err != nil {
		s.writeError(c, err)
		return
	}

	points := make([]protocol.RiskHistoryPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, protocol.RiskHistoryPoint{
			Date:       e.LogDate.Format(protocol.DateFormat),
			Score:      e.Score,
			Confidence: e.Confidence,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": points, "days": days})
}

// handleSimulate runs a what-if trajectory. An empty body simulates
// the user's status quo.
func (s *HTTPServer) handleSimulate(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req protocol.SimulationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	result, err := s.engine.Simulate(c.Request.Context(), userID, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, protocol.SimulationResponse{
		MigraineRisk: result.MigraineRisk,
		Uncertainty:  result.Uncertainty,
		Trajectory:   result.Trajectory,
	})
}

// handleInterventions returns the ranked intervention catalog
func (s *HTTPServer) handleInterventions(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ranked, err := s.engine.Interventions(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]protocol.InterventionResponse, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, protocol.InterventionResponse{
			InterventionType:       r.Type,
			Description:            r.Description,
			PredictedRiskReduction: r.PredictedRiskReduction,
		})
	}

	c.JSON(http.StatusOK, gin.H{"interventions": items})
}

// handleRebuildState replays the user's logs from scratch
func (s *HTTPServer) handleRebuildState(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	est, err := s.engine.RebuildState(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, protocol.VulnerabilityResponse{
		VulnerabilityScore: est.Score,
		Confidence:         est.Confidence,
	})
}

// handleExport returns the anonymized log export
func (s *HTTPServer) handleExport(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	logs, err := s.engine.ExportAnonymized(userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// boundedIntQuery parses a positive integer query parameter with a
// default and an upper bound
func boundedIntQuery(c *gin.Context, name string, def, max int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, &apperr.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	if value > max {
		value = max
	}
	return value, nil
}
