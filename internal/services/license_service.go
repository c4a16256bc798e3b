package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/grants"
	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/pkg/crypto"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/logger"
	"github.com/modlocker/modlocker/pkg/metrics"
)

// vaultTokenBytes is the entropy fed into each capability token. 32 random
// bytes encode to 43 URL-safe characters.
const vaultTokenBytes = 32

var (
	// ErrDownloadUnavailable indicates the user is entitled but the product
	// has no deliverable artifact behind any channel.
	ErrDownloadUnavailable = apperrors.New("DOWNLOAD_UNAVAILABLE", "No download is available for this product", http.StatusNotFound)
	// ErrGrantStoreFailure indicates the grant could not be persisted. The
	// token is withheld because the vault would reject it.
	ErrGrantStoreFailure = apperrors.New("GRANT_STORE_FAILURE", "Unable to issue download token", http.StatusInternalServerError)
)

// DeliveryKind identifies which channel serves a resolved download.
type DeliveryKind string

const (
	// DeliveryVault redirects the client to the delivery vault carrying a
	// one-time capability token.
	DeliveryVault DeliveryKind = "vault"
	// DeliveryFile serves an uploaded release file from local storage.
	DeliveryFile DeliveryKind = "file"
	// DeliveryExternal redirects to a third-party download URL.
	DeliveryExternal DeliveryKind = "external"
)

// DownloadResolution tells the handler how to fulfil a granted download.
// Exactly one of the channel fields is populated, matching Kind.
type DownloadResolution struct {
	Kind DeliveryKind

	// RedirectURL is set for vault and external deliveries.
	RedirectURL string
	// FilePath and FileName are set for local file delivery.
	FilePath string
	FileName string
}

// VaultConfig locates the external delivery vault.
type VaultConfig struct {
	Host string
	Port int
}

// LicenseService mints capability tokens for the delivery vault and decides
// the delivery channel for each granted download.
type LicenseService struct {
	db           *gorm.DB
	grantStore   grants.Store
	entitlements *EntitlementService
	auditService *AuditService
	vault        VaultConfig

	now func() time.Time
}

// NewLicenseService constructs a LicenseService.
func NewLicenseService(db *gorm.DB, store grants.Store, entitlements *EntitlementService, audit *AuditService, vault VaultConfig) (*LicenseService, error) {
	if db == nil {
		return nil, errors.New("license service: db is required")
	}
	if store == nil {
		return nil, errors.New("license service: grant store is required")
	}
	if entitlements == nil {
		return nil, errors.New("license service: entitlement service is required")
	}
	return &LicenseService{
		db:           db,
		grantStore:   store,
		entitlements: entitlements,
		auditService: audit,
		vault:        vault,
		now:          time.Now,
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *LicenseService) WithClock(now func() time.Time) *LicenseService {
	if now != nil {
		s.now = now
	}
	return s
}

// IssueDownload authorises a download of the product for the user and
// resolves the delivery channel. Channel priority is vault, then the latest
// uploaded file, then a configured external URL; an entitled user with no
// channel at all gets ErrDownloadUnavailable.
func (s *LicenseService) IssueDownload(ctx context.Context, user *models.User, productID string) (*DownloadResolution, error) {
	ctx = ensureContext(ctx)
	if user == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("license: load product: %w", err)
	}

	allowed, err := s.entitlements.canAccessProduct(ctx, user, &product)
	if err != nil {
		return nil, err
	}
	if !allowed {
		recordAudit(s.auditService, ctx, AuditEntry{
			UserID:   &user.ID,
			Action:   "download.issue",
			Resource: product.ID,
			Result:   "denied",
		})
		return nil, ErrNotEntitled
	}

	// Analytics only. A failed event write never blocks delivery.
	event := models.DownloadEvent{UserID: user.ID, ProductID: product.ID}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		logger.Warn("failed to record download event",
			zap.String("user_id", user.ID),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
	}

	resolution, err := s.resolveChannel(ctx, user, &product)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "download.issue",
		Resource: product.ID,
		Result:   "success",
		Metadata: map[string]any{
			"product_name": product.Name,
			"channel":      string(resolution.Kind),
		},
	})

	return resolution, nil
}

func (s *LicenseService) resolveChannel(ctx context.Context, user *models.User, product *models.Product) (*DownloadResolution, error) {
	if strings.TrimSpace(product.VaultFolder) != "" {
		token, err := s.mintVaultToken(ctx, user, product)
		if err != nil {
			return nil, err
		}
		return &DownloadResolution{
			Kind:        DeliveryVault,
			RedirectURL: fmt.Sprintf("http://%s:%d/products/download/%s", s.vault.Host, s.vault.Port, token),
		}, nil
	}

	var version models.ProductVersion
	err := s.db.WithContext(ctx).
		Where("product_id = ?", product.ID).
		Order("created_at DESC").
		First(&version).Error
	switch {
	case err == nil && strings.TrimSpace(version.FilePath) != "":
		// A version row can outlive its file on disk. Only serve the file
		// channel when the artifact is actually present, otherwise fall
		// through to the external URL.
		if fileExists(version.FilePath) {
			return &DownloadResolution{
				Kind:     DeliveryFile,
				FilePath: version.FilePath,
				FileName: version.FileName,
			}, nil
		}
		logger.Warn("release file missing on disk",
			zap.String("product_id", product.ID),
			zap.String("file_path", version.FilePath))
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("license: load version: %w", err)
	}

	if url := strings.TrimSpace(product.ExternalURL); url != "" && url != "#" {
		return &DownloadResolution{
			Kind:        DeliveryExternal,
			RedirectURL: url,
		}, nil
	}

	return nil, ErrDownloadUnavailable
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// mintVaultToken generates a fresh capability token and durably records its
// grant. Persistence is a hard gate: a token the vault cannot look up is
// never handed out.
func (s *LicenseService) mintVaultToken(ctx context.Context, user *models.User, product *models.Product) (string, error) {
	token, err := crypto.GenerateToken(vaultTokenBytes)
	if err != nil {
		return "", fmt.Errorf("license: generate token: %w", err)
	}

	grant := grants.Grant{
		IssuedAt:      s.now().UTC(),
		ProductFolder: product.VaultFolder,
		ProductName:   product.Name,
		UserID:        user.ID,
		ProductID:     product.ID,
	}
	if err := s.grantStore.Put(ctx, token, grant); err != nil {
		logger.Error("failed to persist download grant",
			zap.String("user_id", user.ID),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		return "", ErrGrantStoreFailure
	}

	metrics.LicenseGrantsIssued.Inc()
	return token, nil
}
