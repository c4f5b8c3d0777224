// Package problem renders domain errors as RFC 9457 application/problem+json
// bodies. Sentinel errors are bucketed by HTTP status, and each bucket is
// additionally paired with a short machine-readable code and title.
package problem

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// Detail is the RFC 9457 response body.
type Detail struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Code     string            `json:"code"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type entry struct {
	status int
	code   string
	title  string
}

var buckets = []struct {
	err   error
	entry entry
}{
	{entity.ErrAgentNotFound, entry{http.StatusNotFound, "NOT_FOUND", "Not Found"}},
	{entity.ErrDiaryNotFound, entry{http.StatusNotFound, "NOT_FOUND", "Not Found"}},
	{entity.ErrDiaryEntryNotFound, entry{http.StatusNotFound, "NOT_FOUND", "Not Found"}},
	{entity.ErrDiaryShareNotFound, entry{http.StatusNotFound, "NOT_FOUND", "Not Found"}},
	{entity.ErrVoucherNotFound, entry{http.StatusNotFound, "NOT_FOUND", "Not Found"}},
	{entity.ErrSigningRequestNotFound, entry{http.StatusNotFound, "NOT_FOUND", "Not Found"}},

	{entity.ErrInvalidPublicKey, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},
	{entity.ErrInvalidVisibility, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},
	{entity.ErrInvalidEntryType, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},
	{entity.ErrEmptySearchQuery, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},
	{entity.ErrInvalidCursor, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},
	{entity.ErrMissingClientID, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},
	{entity.ErrUnsupportedGrantType, entry{http.StatusBadRequest, "VALIDATION_FAILED", "Validation Failed"}},

	{entity.ErrUnauthorized, entry{http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"}},
	{entity.ErrForbidden, entry{http.StatusForbidden, "FORBIDDEN", "Forbidden"}},
	// A rejected voucher (already used, expired, or otherwise invalid) surfaces
	// from the registration workflow as ErrVoucherValidation. Re-registering
	// against a spent voucher is a 403, not a 400 — the caller isn't
	// malformed, they're not entitled to redeem this voucher.
	{entity.ErrVoucherValidation, entry{http.StatusForbidden, "FORBIDDEN", "Forbidden"}},

	{entity.ErrInvalidChallenge, entry{http.StatusBadRequest, "INVALID_CHALLENGE", "Invalid Challenge"}},
	{entity.ErrInvalidSignature, entry{http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid Signature"}},

	{entity.ErrSigningRequestExpired, entry{http.StatusConflict, "SIGNING_REQUEST_EXPIRED", "Signing Request Expired"}},
	{entity.ErrSigningRequestAlreadyCompleted, entry{http.StatusConflict, "ALREADY_COMPLETED", "Already Completed"}},

	{entity.ErrSelfShare, entry{http.StatusConflict, "SELF_SHARE", "Self Share"}},
	{entity.ErrAlreadyShared, entry{http.StatusConflict, "ALREADY_SHARED", "Already Shared"}},
	{entity.ErrWrongStatus, entry{http.StatusConflict, "WRONG_STATUS", "Wrong Status"}},
	{entity.ErrVoucherCapReached, entry{http.StatusConflict, "VOUCHER_CAP_REACHED", "Voucher Cap Reached"}},
	{entity.ErrVoucherAlreadyUsed, entry{http.StatusConflict, "VOUCHER_ALREADY_USED", "Voucher Already Used"}},
	{entity.ErrVoucherExpired, entry{http.StatusConflict, "VOUCHER_EXPIRED", "Voucher Expired"}},

	{entity.ErrUpstream, entry{http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream Error"}},

	{entity.ErrRateLimited, entry{http.StatusTooManyRequests, "RATE_LIMITED", "Too Many Requests"}},
}

func classify(err error) entry {
	for _, b := range buckets {
		if errors.Is(err, b.err) {
			return b.entry
		}
	}
	return entry{http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error"}
}

// Render writes err to the response as application/problem+json, logging
// anything that fell through to a 500 as unhandled.
func Render(c *gin.Context, err error) {
	e := classify(err)
	if e.status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "unhandled error", slog.String("error", err.Error()))
	}

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(e.status, Detail{
		Type:     "about:blank",
		Title:    e.title,
		Status:   e.status,
		Code:     e.code,
		Detail:   err.Error(),
		Instance: c.Request.URL.Path,
	})
}

// ValidationErrors renders a 400 VALIDATION_FAILED with a field->message map,
// used for request-binding failures that don't map to a domain sentinel.
func ValidationErrors(c *gin.Context, errs map[string]string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(http.StatusBadRequest, Detail{
		Type:     "about:blank",
		Title:    "Validation Failed",
		Status:   http.StatusBadRequest,
		Code:     "VALIDATION_FAILED",
		Detail:   "request failed validation",
		Instance: c.Request.URL.Path,
		Errors:   errs,
	})
}
