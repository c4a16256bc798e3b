package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/services"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/response"
)

type ProductHandler struct {
	licenses     *services.LicenseService
	entitlements *services.EntitlementService
}

func NewProductHandler(licenses *services.LicenseService, entitlements *services.EntitlementService) (*ProductHandler, error) {
	if licenses == nil || entitlements == nil {
		return nil, apperrors.New("HANDLER_MISCONFIGURED", "product handler dependencies missing", http.StatusInternalServerError)
	}
	return &ProductHandler{licenses: licenses, entitlements: entitlements}, nil
}

// GET /api/products/:id/download authorises the download and fulfils it over
// whichever channel the product supports: a vault redirect carrying a
// one-time token, a local file stream, or an external redirect.
func (h *ProductHandler) Download(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthenticated)
		return
	}

	resolution, err := h.licenses.IssueDownload(requestContext(c), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	switch resolution.Kind {
	case services.DeliveryFile:
		c.FileAttachment(resolution.FilePath, resolution.FileName)
	default:
		c.Redirect(http.StatusFound, resolution.RedirectURL)
	}
}

// GET /api/products/locker lists every product the caller can download.
func (h *ProductHandler) Locker(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthenticated)
		return
	}

	products, err := h.entitlements.ListOwned(requestContext(c), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, products)
}
