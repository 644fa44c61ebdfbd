package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/actor"
	productapp "equiprent/internal/app/handlers/products"
	quotationapp "equiprent/internal/app/handlers/quotations"
	authsvc "equiprent/internal/app/services/auth"
	"equiprent/internal/app/validation"
	domainorder "equiprent/internal/domain/order"
	domainpricing "equiprent/internal/domain/pricing"
	domainproduct "equiprent/internal/domain/product"
	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
	domainuser "equiprent/internal/domain/user"
	"equiprent/internal/infra/security"
)

// handleError translates application errors into status codes and a {"error": "..."} body.
func handleError(c *gin.Context, logger *slog.Logger, err error) {
	var rejected *domainquotation.ValidationError
	if errors.As(err, &rejected) {
		if logger != nil {
			logger.Info("quotation rejected", "detail", rejected.Detail(), "request_id", c.GetString("request_id"))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": rejected.Message})
		return
	}
	var invalid *validation.InputError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "fields": invalid.Fields})
		return
	}

	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, actor.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
	case errors.Is(err, actor.ErrForbidden),
		errors.Is(err, domainquotation.ErrNotOwned),
		errors.Is(err, domainproduct.ErrNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	case errors.Is(err, domainquotation.ErrNotFound),
		errors.Is(err, domainproduct.ErrNotFound),
		errors.Is(err, domainorder.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainquotation.ErrInvalidTransition),
		errors.Is(err, domainquotation.ErrNotDraft),
		errors.Is(err, domainquotation.ErrValidityElapsed),
		errors.Is(err, domainquotation.ErrDuplicateNumber),
		errors.Is(err, domainorder.ErrAlreadyExists),
		errors.Is(err, domainuser.ErrEmailAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, quotationapp.ErrProductUnavailable),
		errors.Is(err, domainproduct.ErrNotPublished),
		errors.Is(err, domainproduct.ErrRateMissing),
		errors.Is(err, domainproduct.ErrVariantNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case isBadInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, productapp.ErrImagesUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		if logger != nil {
			logger.Error("request failed", "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id"))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func isBadInput(err error) bool {
	for _, target := range []error{
		domainquotation.ErrProductRequired,
		domainquotation.ErrInvalidQuantity,
		domainquotation.ErrInvalidDurationType,
		domainpricing.ErrInvalidQuantity,
		domainpricing.ErrInvalidPeriods,
		domainpricing.ErrWindowTooLong,
		domainquotation.ErrNegativeTotal,
		domainquotation.ErrNegativeDeposit,
		daterange.ErrInvalidRange,
		domainproduct.ErrNameRequired,
		domainproduct.ErrPricingRequired,
		domainproduct.ErrInvalidRate,
		domainproduct.ErrUnknownRateType,
		domainproduct.ErrCurrencyMismatch,
		domainproduct.ErrNegativeStock,
		domainproduct.ErrNegativeDeposit,
		money.ErrInvalidCurrency,
		money.ErrCurrencyMismatch,
		money.ErrNegativeAmount,
		money.ErrOverflow,
		authsvc.ErrPasswordTooShort,
		security.ErrPasswordTooLong,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
