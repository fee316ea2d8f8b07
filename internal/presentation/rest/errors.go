package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

type errorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// writeError renders err as {"error": {"reason", "message"}}. Errors that
// carry no reason code are reported as internal without detail.
func (r *Router) writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		r.logger.ErrorContext(c.Request.Context(), "request failed",
			"route", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func errorResponse(err error) (int, errorBody) {
	switch {
	case errors.Is(err, context.Canceled):
		return 499, errorBody{Reason: "CANCELLED", Message: "request cancelled"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Reason: "DEADLINE_EXCEEDED", Message: "deadline exceeded"}
	}
	var pe *model.PipelineError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, errorBody{Reason: "INTERNAL", Message: "internal error"}
	}
	return httpStatus(pe.Reason), errorBody{Reason: pe.Reason.String(), Message: pe.Message}
}

func httpStatus(r valueobject.ReasonCode) int {
	switch r {
	case valueobject.ReasonInvalidRequest:
		return http.StatusBadRequest
	case valueobject.ReasonIdentityNotFound:
		return http.StatusNotFound
	case valueobject.ReasonIdentityAmbiguous:
		return http.StatusUnprocessableEntity
	case valueobject.ReasonConsentRequired:
		return http.StatusConflict
	case valueobject.ReasonConsentTimedOut:
		return http.StatusGatewayTimeout
	case valueobject.ReasonUpstreamUnavailable, valueobject.ReasonScoreUnavailable, valueobject.ReasonMalformedUpstreamPayload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func invalidBody(err error) error {
	return model.NewPipelineError(valueobject.ReasonInvalidRequest, "malformed request body", err)
}
