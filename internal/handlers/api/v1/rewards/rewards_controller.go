// file: internal/handlers/api/v1/rewards/rewards_controller.go
package rewards

import (
	"net/http"
	"strconv"

	"goldhub/internal/contextutils"
	"goldhub/internal/response"
	"goldhub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RewardsController serves the rewards screen, the claim endpoint and the
// notification surface.
type RewardsController struct {
	achievements  services.AchievementService
	notifications services.NotificationService
	hub           *services.NotificationHub
	logger        *zap.Logger
}

// NewRewardsController creates the rewards API controller.
func NewRewardsController(
	achievements services.AchievementService,
	notifications services.NotificationService,
	hub *services.NotificationHub,
	logger *zap.Logger,
) *RewardsController {
	return &RewardsController{
		achievements:  achievements,
		notifications: notifications,
		hub:           hub,
		logger:        logger,
	}
}

// GetOverview handles GET /api/v1/rewards.
func (c *RewardsController) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	overview, err := c.achievements.GetOverview(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, overview)
}

// ClaimReward handles POST /api/v1/rewards/challenges/{challengeID}/claim.
func (c *RewardsController) ClaimReward(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	challengeID := chi.URLParam(r, "challengeID")
	if challengeID == "" {
		response.WriteValidationError(w, r, c.logger, "challenge ID is required")
		return
	}

	result, err := c.achievements.Claim(r.Context(), userID, challengeID)
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, result)
}

// Recompute handles POST /api/v1/rewards/recompute. Synchronous resync of
// the caller's achievement state, used after support interventions.
func (c *RewardsController) Recompute(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	if err := c.achievements.Recompute(r.Context(), userID); err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}

	overview, err := c.achievements.GetOverview(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, overview)
}

// ListNotifications handles GET /api/v1/notifications.
func (c *RewardsController) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.WriteValidationError(w, r, c.logger, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	notifications, err := c.notifications.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /api/v1/notifications/{notificationID}/read.
func (c *RewardsController) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil || notificationID <= 0 {
		response.WriteValidationError(w, r, c.logger, "notification ID must be a positive integer")
		return
	}

	if err := c.notifications.MarkRead(r.Context(), notificationID, userID); err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, map[string]bool{"read": true})
}

// WebSocket handles GET /api/v1/notifications/ws and keeps the connection
// open for live pushes.
func (c *RewardsController) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	c.hub.HandleConnection(w, r, userID)
}
