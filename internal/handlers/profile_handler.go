package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/utils"
)

type ProfileHandler struct {
	BaseHandler
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
	}
}

// GetProfile returns the caller's account and profile.
// @Summary Get profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.ProfileEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	envelope, err := h.profileService.Get(c.Request.Context(), userID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// SaveProfile upserts the caller's profile from a JSON object and returns the stored state.
// @Summary Save profile
// @Tags profile
// @Accept json
// @Produce json
// @Success 200 {object} models.ProfileEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /profile [post]
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	var fields map[string]any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		respondError(c, http.StatusBadRequest, CodeInvalidArgument, "Invalid JSON")
		return
	}

	envelope, err := h.profileService.Save(c.Request.Context(), userID(c), fields)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Profile saved", "user_id", userID(c))
	c.JSON(http.StatusOK, envelope)
}
