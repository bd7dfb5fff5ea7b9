package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/chatwarden/internal/domain/model"
	authsvc "github.com/ivankudzin/chatwarden/internal/services/auth"
	"github.com/ivankudzin/chatwarden/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/chatwarden/internal/transport/http/errors"
)

type VotebanSettings interface {
	Resolve(ctx context.Context, chatID int64) (model.ChatModerationConfig, error)
	SetQuorum(ctx context.Context, chatID int64, raw int64) (int, error)
}

type VotebanSettingsHandler struct {
	settings VotebanSettings
}

func NewVotebanSettingsHandler(settings VotebanSettings) *VotebanSettingsHandler {
	return &VotebanSettingsHandler{settings: settings}
}

func (h *VotebanSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.authorizedChat(w, r)
	if !ok {
		return
	}
	h.writeSettings(w, r, chatID)
}

func (h *VotebanSettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.authorizedChat(w, r)
	if !ok {
		return
	}

	var req dto.UpdateVotebanSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quorum == nil {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "quorum is required",
		})
		return
	}

	if _, err := h.settings.SetQuorum(r.Context(), chatID, *req.Quorum); err != nil {
		httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to update voteban settings",
		})
		return
	}

	h.writeSettings(w, r, chatID)
}

func (h *VotebanSettingsHandler) writeSettings(w http.ResponseWriter, r *http.Request, chatID int64) {
	cfg, err := h.settings.Resolve(r.Context(), chatID)
	if err != nil {
		httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to load voteban settings",
		})
		return
	}

	httperrors.Write(w, http.StatusOK, dto.VotebanSettingsResponse{
		ChatID:    chatID,
		Quorum:    cfg.Quorum,
		Enabled:   cfg.Enabled(),
		BotCanBan: cfg.BotCanBan,
	})
}

func (h *VotebanSettingsHandler) authorizedChat(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if h.settings == nil {
		httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
			Code:    "SETTINGS_UNAVAILABLE",
			Message: "settings service is unavailable",
		})
		return 0, false
	}

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil || chatID == 0 {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "invalid chat id",
		})
		return 0, false
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:    "UNAUTHORIZED",
			Message: "missing identity",
		})
		return 0, false
	}
	if !identity.AllowsChat(chatID) {
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Code:    "FORBIDDEN",
			Message: "token does not grant access to this chat",
		})
		return 0, false
	}

	return chatID, true
}
