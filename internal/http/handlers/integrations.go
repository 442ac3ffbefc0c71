package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/infra/credentials"
)

type geminiKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (a *App) SetGeminiKey(w http.ResponseWriter, r *http.Request) {
	var req geminiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Credentials.SetGeminiAPIKey(r.Context(), req.APIKey); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}

type metaCredentialsRequest struct {
	AccessToken string `json:"access_token"`
	IGUserID    string `json:"ig_user_id"`
	PageID      string `json:"page_id"`
}

func (a *App) SetMetaCredentials(w http.ResponseWriter, r *http.Request) {
	var req metaCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	err := a.Credentials.SetMetaCredentials(r.Context(), credentials.MetaCredentials{
		AccessToken: req.AccessToken,
		IGUserID:    req.IGUserID,
		PageID:      req.PageID,
	})
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}

type youtubeTokenRequest struct {
	Token string `json:"token"`
}

func (a *App) SetYouTubeToken(w http.ResponseWriter, r *http.Request) {
	var req youtubeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Credentials.SetYouTubeToken(r.Context(), req.Token); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}
