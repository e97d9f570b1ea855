package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

type interestProfile struct {
	InterestProfile string `json:"interest_profile"`
}

// GetInterestProfile returns the profile used for interest scoring.
func (h *Handler) GetInterestProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.GetInterestProfile(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "interest profile")
		return
	}
	writeJSON(w, r, http.StatusOK, interestProfile{InterestProfile: profile})
}

// SetInterestProfile replaces the profile. Existing scores are kept until a
// rescore job runs.
func (h *Handler) SetInterestProfile(w http.ResponseWriter, r *http.Request) {
	var req interestProfile
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	profile := strings.TrimSpace(req.InterestProfile)
	if profile == "" {
		writeError(w, r, http.StatusBadRequest, "interest_profile is required")
		return
	}

	if err := h.store.SetInterestProfile(r.Context(), profile); err != nil {
		writeStoreError(w, r, err, "interest profile")
		return
	}
	hlog.FromRequest(r).Info().Int("length", len(profile)).Msg("Interest profile updated")
	writeJSON(w, r, http.StatusOK, interestProfile{InterestProfile: profile})
}
