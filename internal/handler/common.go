package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"wallet_tracker/internal/logger"
	"wallet_tracker/internal/middleware"
	"wallet_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// caller returns the authenticated user's id and role, answering 401 when
// the auth middleware did not run.
func caller(c *gin.Context) (int, string, bool) {
	userID, ok := c.Get(middleware.AuthUserKey)
	if id, isInt := userID.(int); ok && isInt {
		return id, c.GetString(middleware.AuthRoleKey), true
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	return 0, "", false
}

// idParam parses the :id path parameter, answering 400 on failure.
func idParam(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return id, true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, service.ErrWalletNotFound),
		errors.Is(err, service.ErrReceiptNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPaymentLinked):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidFileFormat),
		errors.Is(err, service.ErrFileSizeExceeded),
		errors.Is(err, service.ErrNegativeAmount),
		errors.Is(err, service.ErrNotCreditWallet),
		errors.Is(err, service.ErrInvalidBillingDay),
		errors.Is(err, service.ErrInvalidWallet),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSameWallet),
		errors.Is(err, service.ErrMissingBillAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Unexpected errors are logged and hidden
// behind fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg(fallback)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseDay parses a YYYY-MM-DD query value. With endOfDay the result is the
// last instant of that day.
func parseDay(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format for '" + key + "', use YYYY-MM-DD"})
		return nil, false
	}
	if endOfDay {
		day = time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999999999, day.Location())
	}
	return &day, true
}

func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}
