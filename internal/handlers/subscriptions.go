package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/services"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/response"
)

type SubscriptionHandler struct {
	entitlements *services.EntitlementService
}

func NewSubscriptionHandler(entitlements *services.EntitlementService) (*SubscriptionHandler, error) {
	if entitlements == nil {
		return nil, apperrors.New("HANDLER_MISCONFIGURED", "subscription handler dependencies missing", http.StatusInternalServerError)
	}
	return &SubscriptionHandler{entitlements: entitlements}, nil
}

// POST /api/subscriptions/checkout records a pending activation keyed by the
// provider's payment intent id.
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthenticated)
		return
	}

	var body struct {
		Plan     string `json:"plan" validate:"required,oneof=monthly quarterly biannual annual"`
		IntentID string `json:"payment_intent_id" validate:"required"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.entitlements.CreatePendingActivation(requestContext(c), user.ID, body.Plan, body.IntentID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"pending": true})
}

// POST /api/subscriptions/activate verifies payment and applies the plan.
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	var body struct {
		IntentID string `json:"payment_intent_id" validate:"required"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.entitlements.ActivateSubscription(requestContext(c), body.IntentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"is_premium":              user.IsPremium,
		"subscription_expires_at": user.SubscriptionExpiresAt,
	})
}
