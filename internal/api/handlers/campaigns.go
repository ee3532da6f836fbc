package handlers

import (
	"net/http"
	"strconv"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/campaigns"
)

type CampaignsHandler struct {
	Campaigns *campaigns.Service
	Audit     *audit.Logger
	Env       string
}

func NewCampaignsHandler(campaignService *campaigns.Service, auditLogger *audit.Logger, env string) *CampaignsHandler {
	return &CampaignsHandler{Campaigns: campaignService, Audit: auditLogger, Env: env}
}

type campaignRequest struct {
	Name       string   `json:"name"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// Create handles POST /api/v1/admin/campaigns.
func (h *CampaignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	campaign, err := h.Campaigns.CreateCampaign(r.Context(), campaigns.CreateCampaignParams{
		Name:       req.Name,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: req.Recipients,
		CreatedBy:  actor.Subject,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("campaign_created", actor.Subject, "campaign", campaign.ID, audit.ClientIP(r), map[string]string{"name": campaign.Name})
	writeJSON(w, http.StatusCreated, campaign)
}

// List handles GET /api/v1/admin/campaigns.
func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, total, err := h.Campaigns.ListCampaigns(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": list, "total": total})
}

// Get handles GET /api/v1/admin/campaigns/{id}.
func (h *CampaignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.Campaigns.GetCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// Update handles PUT /api/v1/admin/campaigns/{id}. Only drafts can change.
func (h *CampaignsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	campaign, err := h.Campaigns.UpdateCampaign(r.Context(), r.PathValue("id"), campaigns.UpdateCampaignParams{
		Name:       req.Name,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: req.Recipients,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// Delete handles DELETE /api/v1/admin/campaigns/{id}.
func (h *CampaignsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Campaigns.DeleteCampaign(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("campaign_deleted", actor.Subject, "campaign", id, audit.ClientIP(r), nil)
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/admin/campaigns/{id}/send. The campaign moves to
// sending and delivery happens on the job queue.
func (h *CampaignsHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Campaigns.SendCampaign(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	campaign, err := h.Campaigns.GetCampaign(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("campaign_sent", actor.Subject, "campaign", id, audit.ClientIP(r), map[string]string{"recipients": strconv.Itoa(len(campaign.Recipients))})
	writeJSON(w, http.StatusAccepted, campaign)
}

// Results handles GET /api/v1/admin/campaigns/{id}/results.
func (h *CampaignsHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.Campaigns.ListSendResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
