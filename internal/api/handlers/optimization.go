package handlers

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/cache"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/config"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/optimizer"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/solver"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

// OptimizeRequest is the payload for squad optimization. Players come
// from the platform feed collaborator, the snapshot from the team
// endpoint. Matchday, when set, selects the stage-appropriate rule set.
type OptimizeRequest struct {
	Matchday int                 `json:"matchday,omitempty"`
	Players  []types.Player      `json:"players" binding:"required"`
	Squad    types.SquadSnapshot `json:"squad"`
}

// OptimizeResponse wraps the recommendation with solve metadata.
type OptimizeResponse struct {
	Solution    *types.Solution `json:"solution"`
	Matchday    int             `json:"matchday,omitempty"`
	SolveTimeMs int64           `json:"solve_time_ms"`
	Cached      bool            `json:"cached"`
}

// OptimizationHandler handles squad optimization endpoints
type OptimizationHandler struct {
	mipSolver solver.Solver
	cache     *cache.SolutionCacheService
	config    *config.Config
	logger    *logrus.Logger
}

// NewOptimizationHandler creates a new optimization handler. cache may
// be nil, which disables result caching.
func NewOptimizationHandler(
	mipSolver solver.Solver,
	cacheService *cache.SolutionCacheService,
	cfg *config.Config,
	logger *logrus.Logger,
) *OptimizationHandler {
	return &OptimizationHandler{
		mipSolver: mipSolver,
		cache:     cacheService,
		config:    cfg,
		logger:    logger,
	}
}

// OptimizeSquad handles squad optimization requests
func (h *OptimizationHandler) OptimizeSquad(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	rules, err := h.rulesFor(req.Matchday)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_MATCHDAY",
		})
		return
	}

	h.fillProjections(req.Players)

	cacheKey := h.generateCacheKey(req)
	if h.cache != nil {
		if cached, err := h.cache.GetSolution(c.Request.Context(), cacheKey); err == nil && cached != nil {
			h.logger.WithField("cache_key", cacheKey).Info("Returning cached solution")
			c.JSON(http.StatusOK, OptimizeResponse{
				Solution: cached,
				Matchday: req.Matchday,
				Cached:   true,
			})
			return
		}
	}

	opt := optimizer.New(h.mipSolver, rules, h.solverTimeout(), h.logger)

	start := time.Now()
	solution, err := opt.Optimize(c.Request.Context(), req.Players, req.Squad)
	if err != nil {
		h.writeOptimizationError(c, err)
		return
	}

	if h.cache != nil {
		expiration := time.Duration(h.config.CacheExpirationSeconds) * time.Second
		if err := h.cache.SetSolution(c.Request.Context(), cacheKey, solution, expiration); err != nil {
			h.logger.WithError(err).Warn("Failed to cache solution")
		}
	}

	c.JSON(http.StatusOK, OptimizeResponse{
		Solution:    solution,
		Matchday:    req.Matchday,
		SolveTimeMs: time.Since(start).Milliseconds(),
	})
}

// ValidateRequest checks an optimization request without solving it.
func (h *OptimizationHandler) ValidateRequest(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	rules, err := h.rulesFor(req.Matchday)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_MATCHDAY",
		})
		return
	}

	h.fillProjections(req.Players)

	opt := optimizer.New(h.mipSolver, rules, h.solverTimeout(), h.logger)
	if err := opt.Validate(req.Players, req.Squad); err != nil {
		if ve, ok := optimizer.AsValidationError(err); ok {
			c.JSON(http.StatusOK, gin.H{"valid": false, "problems": ve.Problems})
			return
		}
		h.writeOptimizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *OptimizationHandler) rulesFor(matchday int) (types.RuleConfig, error) {
	if matchday > 0 {
		return types.RulesForMatchday(matchday)
	}
	return h.config.Rules()
}

func (h *OptimizationHandler) solverTimeout() time.Duration {
	return time.Duration(h.config.SolverTimeoutSeconds) * time.Second
}

// fillProjections applies the form-weighted projection to feed records
// that carry history but no explicit projection.
func (h *OptimizationHandler) fillProjections(players []types.Player) {
	for i := range players {
		p := &players[i]
		if p.ProjectedPoints == 0 && (p.AvgPoints != 0 || p.LastMatchdayPoints != 0) {
			p.ProjectedPoints = optimizer.FormWeightedProjection(
				p.AvgPoints, p.LastMatchdayPoints, h.config.FormWeight)
		}
	}
}

func (h *OptimizationHandler) writeOptimizationError(c *gin.Context, err error) {
	if ve, ok := optimizer.AsValidationError(err); ok {
		details := make(map[string]string, len(ve.Problems))
		for i, p := range ve.Problems {
			details[fmt.Sprintf("problem_%d", i+1)] = p
		}
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Input validation failed",
			Code:    "INVALID_INPUT",
			Details: details,
		})
		return
	}

	switch {
	case errors.Is(err, optimizer.ErrInfeasible):
		c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{
			Error: err.Error(),
			Code:  "INFEASIBLE_MODEL",
		})
	case errors.Is(err, optimizer.ErrSolverTimeout):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error: err.Error(),
			Code:  "SOLVER_TIMEOUT",
		})
	case errors.Is(err, optimizer.ErrSolverUnavailable):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error: err.Error(),
			Code:  "SOLVER_UNAVAILABLE",
		})
	default:
		h.logger.WithError(err).Error("Unclassified optimization error")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Optimization failed",
			Code:  "OPTIMIZATION_ERROR",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
	}
}

// generateCacheKey digests the request so identical inputs hit the
// same cache entry.
func (h *OptimizationHandler) generateCacheKey(req OptimizeRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Sprintf("matchday_%d_%d_players", req.Matchday, len(req.Players))
	}
	return fmt.Sprintf("%x", md5.Sum(data))
}
