package handlers

import (
	"net/http"
	"strings"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/apperrors"
	"github.com/velocity-platform/console/internal/response"
	"github.com/velocity-platform/console/internal/utils"
)

func (h *HandlerService) HandleProfile(w http.ResponseWriter, r *http.Request) {
	client, _ := h.sessionClient(w, r)

	env, err := client.Profile(r.Context())
	if err != nil {
		return // redirected to login
	}
	if !env.OK() {
		h.renderAPIError(w, r, env.Status, env.Error)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, env.Data)
}

// HandleProfilePost applies the non-empty form fields name, email and timezone.
func (h *HandlerService) HandleProfilePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Could not read the form.")
		return
	}

	var update apiclient.ProfileUpdate
	if name := strings.TrimSpace(r.PostFormValue("name")); name != "" {
		update.Name = &name
	}
	if tz := strings.TrimSpace(r.PostFormValue("timezone")); tz != "" {
		update.Timezone = &tz
	}
	if raw := r.PostFormValue("email"); strings.TrimSpace(raw) != "" {
		email := utils.NormalizeEmail(raw)
		if err := utils.ValidateEmail(email); err != nil {
			h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "Enter a valid email address.")
			return
		}
		update.Email = &email
	}
	if update.Empty() {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "Nothing to update.")
		return
	}

	client, _ := h.sessionClient(w, r)
	env, err := client.UpdateProfile(r.Context(), update)
	if err != nil {
		return // redirected to login
	}
	if !env.OK() {
		h.renderAPIError(w, r, env.Status, env.Error)
		return
	}

	message := env.Message
	if message == "" {
		message = "Profile updated"
	}
	body := map[string]any{"message": message}
	if env.Data != nil && env.Data.ID != "" {
		body["user"] = env.Data
	}
	response.RespondWithJSON(w, http.StatusOK, body)
}
