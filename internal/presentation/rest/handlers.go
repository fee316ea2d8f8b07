package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bibbank/bureau-service/internal/application/dto"
)

func (r *Router) handleInitiate(c *gin.Context) {
	var req dto.CreditCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.writeError(c, invalidBody(err))
		return
	}
	resp, err := r.uc.Assess.Execute(c.Request.Context(), req)
	if err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleVerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.writeError(c, invalidBody(err))
		return
	}
	resp, err := r.uc.Verify.Execute(c.Request.Context(), req)
	if err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handlePollConsent polls inside the request; a client disconnect cancels it.
func (r *Router) handlePollConsent(c *gin.Context) {
	resp, err := r.uc.Poll.Execute(c.Request.Context(), dto.PollConsentRequest{TransactionID: c.Param("transId")})
	if err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleSendOTP(c *gin.Context) {
	r.phoneOTP(c, r.uc.Phone.SendOTP)
}

func (r *Router) handleResendOTP(c *gin.Context) {
	r.phoneOTP(c, r.uc.Phone.ResendOTP)
}

func (r *Router) phoneOTP(c *gin.Context, send func(context.Context, dto.PhoneOTPRequest) (dto.PhoneOTPResponse, error)) {
	var req dto.PhoneOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.writeError(c, invalidBody(err))
		return
	}
	resp, err := send(c.Request.Context(), req)
	if err != nil {
		r.writeError(c, err)
		return
	}
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

func (r *Router) handleVerifyPhone(c *gin.Context) {
	var req dto.VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.writeError(c, invalidBody(err))
		return
	}
	resp, err := r.uc.Phone.VerifyPhone(c.Request.Context(), req)
	if err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleMatchLenders(c *gin.Context) {
	var req dto.MatchLendersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.writeError(c, invalidBody(err))
		return
	}
	resp, err := r.uc.Lenders.Execute(c.Request.Context(), req)
	if err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleReport(c *gin.Context) {
	resp, err := r.uc.Report.Execute(c.Request.Context(), dto.CreditReportRequest{PAN: c.Param("pan")})
	if err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
