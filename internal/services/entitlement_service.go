package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/cache"
	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/internal/payments"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/logger"
	"github.com/modlocker/modlocker/pkg/metrics"
)

var (
	// ErrProductNotFound indicates the referenced product does not exist.
	ErrProductNotFound = apperrors.New("PRODUCT_NOT_FOUND", "Product not found", http.StatusNotFound)
	// ErrNotEntitled indicates neither a purchase nor an active subscription
	// covers the product.
	ErrNotEntitled = apperrors.New("NOT_ENTITLED", "You do not own this product", http.StatusForbidden)
	// ErrActivationNotFound indicates no pending activation matches the
	// payment intent, or it already expired or was consumed.
	ErrActivationNotFound = apperrors.New("ACTIVATION_NOT_FOUND", "No pending subscription found for this payment", http.StatusNotFound)
	// ErrPaymentIncomplete indicates the payment provider has not confirmed
	// the intent yet. The pending record stays in place for a retry.
	ErrPaymentIncomplete = apperrors.New("PAYMENT_INCOMPLETE", "Payment has not completed", http.StatusConflict)
	// ErrUnknownPlan indicates the subscription plan name is not offered.
	ErrUnknownPlan = apperrors.New("UNKNOWN_PLAN", "Unknown subscription plan", http.StatusBadRequest)
)

// planDurations maps offered subscription plans to their entitlement window.
var planDurations = map[string]time.Duration{
	"monthly":   30 * 24 * time.Hour,
	"quarterly": 90 * 24 * time.Hour,
	"biannual":  180 * 24 * time.Hour,
	"annual":    365 * 24 * time.Hour,
}

// pendingActivationTTL bounds how long an unconfirmed checkout stays
// redeemable.
const pendingActivationTTL = 24 * time.Hour

// pendingActivation is the cache record keyed by payment intent ID between
// checkout and payment confirmation.
type pendingActivation struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// EntitlementService answers "may this user download this product" and owns
// the subscription activation flow.
type EntitlementService struct {
	db           *gorm.DB
	store        cache.Store
	paymentsAPI  payments.Client
	auditService *AuditService

	// now is injectable so expiry boundaries are testable.
	now func() time.Time
}

// NewEntitlementService constructs an EntitlementService.
func NewEntitlementService(db *gorm.DB, store cache.Store, paymentsAPI payments.Client, audit *AuditService) (*EntitlementService, error) {
	if db == nil {
		return nil, errors.New("entitlement service: db is required")
	}
	if store == nil {
		return nil, errors.New("entitlement service: cache store is required")
	}
	return &EntitlementService{
		db:           db,
		store:        store,
		paymentsAPI:  paymentsAPI,
		auditService: audit,
		now:          time.Now,
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *EntitlementService) WithClock(now func() time.Time) *EntitlementService {
	if now != nil {
		s.now = now
	}
	return s
}

// CanAccess reports whether the user is entitled to the product. A recorded
// purchase always grants access; subscription-only products are additionally
// covered by an unexpired subscription. Expiry is strict, so an expiry equal
// to the current instant denies.
func (s *EntitlementService) CanAccess(ctx context.Context, user *models.User, productID string) (bool, error) {
	ctx = ensureContext(ctx)
	if user == nil {
		return false, apperrors.ErrUnauthenticated
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrProductNotFound
		}
		return false, fmt.Errorf("entitlement: load product: %w", err)
	}

	allowed, err := s.canAccessProduct(ctx, user, &product)
	if err != nil {
		return false, err
	}

	result := "denied"
	if allowed {
		result = "granted"
	}
	metrics.EntitlementChecks.WithLabelValues(result).Inc()

	return allowed, nil
}

func (s *EntitlementService) canAccessProduct(ctx context.Context, user *models.User, product *models.Product) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ? AND product_id = ?", user.ID, product.ID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("entitlement: check purchases: %w", err)
	}
	if count > 0 {
		return true, nil
	}

	if product.SubscriptionOnly && user.HasActiveSubscription(s.now().UTC()) {
		return true, nil
	}
	return false, nil
}

// ListOwned returns every product the user can currently download: purchased
// products always, plus all subscription-only products while the user's
// subscription is active.
func (s *EntitlementService) ListOwned(ctx context.Context, user *models.User) ([]models.Product, error) {
	ctx = ensureContext(ctx)
	if user == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	var purchasedIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ?", user.ID).
		Distinct().
		Pluck("product_id", &purchasedIDs).Error; err != nil {
		return nil, fmt.Errorf("entitlement: list purchases: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Product{}).Order("name ASC")
	if user.HasActiveSubscription(s.now().UTC()) {
		if len(purchasedIDs) > 0 {
			query = query.Where("subscription_only = ? OR id IN ?", true, purchasedIDs)
		} else {
			query = query.Where("subscription_only = ?", true)
		}
	} else {
		if len(purchasedIDs) == 0 {
			return []models.Product{}, nil
		}
		query = query.Where("id IN ?", purchasedIDs)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("entitlement: list products: %w", err)
	}
	return products, nil
}

// CreatePendingActivation records that a checkout for a subscription plan
// has begun. The record is keyed by the payment intent ID and consumed by
// ActivateSubscription once the provider confirms payment.
func (s *EntitlementService) CreatePendingActivation(ctx context.Context, userID, plan, intentID string) error {
	ctx = ensureContext(ctx)

	plan = strings.ToLower(strings.TrimSpace(plan))
	if _, ok := planDurations[plan]; !ok {
		return ErrUnknownPlan
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return apperrors.NewBadRequest("payment intent id is required")
	}

	payload, err := json.Marshal(pendingActivation{UserID: userID, Plan: plan})
	if err != nil {
		return fmt.Errorf("entitlement: encode pending activation: %w", err)
	}
	if err := s.store.Set(ctx, pendingActivationKey(intentID), payload, pendingActivationTTL); err != nil {
		return fmt.Errorf("entitlement: store pending activation: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "subscription.checkout",
		Resource: intentID,
		Result:   "success",
		Metadata: map[string]any{
			"plan": plan,
		},
	})

	return nil
}

// ActivateSubscription verifies the payment intent with the provider and, on
// success, extends the user's subscription by the plan duration. The pending
// record is consumed exactly once so a replayed confirmation cannot grant a
// second extension.
func (s *EntitlementService) ActivateSubscription(ctx context.Context, intentID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, apperrors.NewBadRequest("payment intent id is required")
	}

	// The pending record is taken atomically up front so concurrent requests
	// for the same intent cannot both extend the subscription. Non-success
	// paths put the record back for a later retry.
	key := pendingActivationKey(intentID)
	payload, found, err := s.store.Take(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("entitlement: load pending activation: %w", err)
	}
	if !found {
		metrics.SubscriptionActivations.WithLabelValues("not_found").Inc()
		return nil, ErrActivationNotFound
	}
	restorePending := func() {
		if err := s.store.Set(ctx, key, payload, pendingActivationTTL); err != nil {
			logger.Warn("failed to restore pending activation",
				zap.String("intent_id", intentID),
				zap.Error(err),
			)
		}
	}

	var pending pendingActivation
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("entitlement: decode pending activation: %w", err)
	}

	if s.paymentsAPI == nil {
		restorePending()
		return nil, apperrors.New("PAYMENTS_UNAVAILABLE", "Payment verification is not configured", http.StatusServiceUnavailable)
	}

	status, err := s.paymentsAPI.IntentStatus(ctx, intentID)
	if err != nil {
		if errors.Is(err, payments.ErrIntentNotFound) {
			metrics.SubscriptionActivations.WithLabelValues("not_found").Inc()
			return nil, ErrActivationNotFound
		}
		restorePending()
		return nil, fmt.Errorf("entitlement: verify payment: %w", err)
	}
	if status != payments.StatusSucceeded {
		// The client may retry once payment lands.
		restorePending()
		metrics.SubscriptionActivations.WithLabelValues("incomplete").Inc()
		return nil, ErrPaymentIncomplete
	}

	duration := planDurations[pending.Plan]
	now := s.now().UTC()

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", pending.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("entitlement: load user: %w", err)
		}

		// An active subscription extends from its current expiry; a lapsed
		// one restarts from now.
		base := now
		if user.HasActiveSubscription(now) {
			base = user.SubscriptionExpiresAt.UTC()
		}
		expiry := base.Add(duration)

		updates := map[string]any{
			"is_premium":              true,
			"subscription_id":         intentID,
			"subscription_expires_at": expiry,
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("entitlement: update subscription: %w", err)
		}
		user.IsPremium = true
		user.SubscriptionID = intentID
		user.SubscriptionExpiresAt = &expiry
		return nil
	})
	if err != nil {
		restorePending()
		return nil, err
	}

	metrics.SubscriptionActivations.WithLabelValues("success").Inc()

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "subscription.activate",
		Resource: intentID,
		Result:   "success",
		Metadata: map[string]any{
			"plan":       pending.Plan,
			"expires_at": user.SubscriptionExpiresAt,
		},
	})

	return &user, nil
}

// RecordPurchase stores a completed one-time purchase. TransactionID is
// unique, so a replayed confirmation is reported as a conflict instead of
// granting a duplicate row.
func (s *EntitlementService) RecordPurchase(ctx context.Context, userID, productID, transactionID string, price float64) (*models.Purchase, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(transactionID) == "" {
		return nil, apperrors.NewBadRequest("transaction id is required")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("entitlement: load product: %w", err)
	}

	purchase := &models.Purchase{
		UserID:        userID,
		ProductID:     product.ID,
		TransactionID: strings.TrimSpace(transactionID),
		Price:         price,
	}
	if err := s.db.WithContext(ctx).Create(purchase).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("DUPLICATE_TRANSACTION", "Transaction already recorded", http.StatusConflict)
		}
		return nil, fmt.Errorf("entitlement: record purchase: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "purchase.record",
		Resource: product.ID,
		Result:   "success",
		Metadata: map[string]any{
			"transaction_id": purchase.TransactionID,
			"product_name":   product.Name,
		},
	})

	return purchase, nil
}

func pendingActivationKey(intentID string) string {
	return "pending:" + intentID
}
