// file: internal/handlers/api/v1/challenges/challenges_controller.go
package challenges

import (
	"encoding/json"
	"net/http"

	"goldhub/internal/catalog"
	"goldhub/internal/response"
	"goldhub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChallengesController serves the admin challenge definition endpoints.
type ChallengesController struct {
	admin  services.ChallengeAdminService
	logger *zap.Logger
}

// NewChallengesController creates the admin challenges API controller.
func NewChallengesController(admin services.ChallengeAdminService, logger *zap.Logger) *ChallengesController {
	return &ChallengesController{admin: admin, logger: logger}
}

// List handles GET /api/v1/admin/challenges.
func (c *ChallengesController) List(w http.ResponseWriter, r *http.Request) {
	defs, err := c.admin.ListChallenges(r.Context())
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, defs)
}

// Create handles POST /api/v1/admin/challenges.
func (c *ChallengesController) Create(w http.ResponseWriter, r *http.Request) {
	var def catalog.ChallengeDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		response.WriteValidationError(w, r, c.logger, "invalid request body")
		return
	}

	if err := c.admin.CreateChallenge(r.Context(), &def); err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusCreated, def)
}

// Update handles PUT /api/v1/admin/challenges/{challengeID}.
func (c *ChallengesController) Update(w http.ResponseWriter, r *http.Request) {
	var def catalog.ChallengeDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		response.WriteValidationError(w, r, c.logger, "invalid request body")
		return
	}
	def.ID = chi.URLParam(r, "challengeID")

	if err := c.admin.UpdateChallenge(r.Context(), &def); err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, def)
}

// Delete handles DELETE /api/v1/admin/challenges/{challengeID}.
func (c *ChallengesController) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "challengeID")

	if err := c.admin.DeleteChallenge(r.Context(), id); err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, map[string]string{"deleted": id})
}
