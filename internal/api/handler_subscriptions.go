package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"casework-backend/internal/model"
	"casework-backend/internal/mw"
)

type putSubscriptionRequest struct {
	Endpoint        string  `json:"endpoint" binding:"required"`
	P256DH          string  `json:"p256dh" binding:"required"`
	Auth            string  `json:"auth" binding:"required"`
	SubscribedSites []int64 `json:"subscribed_sites"`
}

// PutSubscription handles the creation or replacement of a subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "endpoint, p256dh and auth are required")
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		UserID:   mw.UserID(c),
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription, req.SubscribedSites); err != nil {
		h.writeError(c, err)
		return
	}

	ok(c, http.StatusCreated, "Subscription saved", gin.H{"subscribed_sites": siteIDs(subscription.Sites)})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// endpointParam reads the endpoint query parameter. Push endpoints are URLs
// that browsers sometimes send unescaped, so a value that fails to unescape
// is used as is.
func endpointParam(rawQuery string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		raw, found := strings.CutPrefix(kv, "endpoint=")
		if !found {
			continue
		}
		if v, err := url.QueryUnescape(raw); err == nil {
			return v, true
		}
		return raw, true
	}
	return "", false
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint, found := endpointParam(c.Request.URL.RawQuery)
	if !found || endpoint == "" {
		fail(c, http.StatusBadRequest, "endpoint is required")
		return
	}

	subscription, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribed_sites": siteIDs(subscription.Sites)})
}

func siteIDs(sites []*model.Site) []int64 {
	ids := make([]int64, len(sites))
	for i, site := range sites {
		ids[i] = site.ID
	}
	return ids
}
