package handler

import (
	"encoding/json"
	"net/http"

	"github.com/campus-connect/api/internal/application/verification"
)

// VerificationHandler exposes the OTP issue/verify endpoints. Both are public:
// the client holds only an unverified account at this point, so requests carry
// the userId in the body rather than a bearer token.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// SendOTP handles POST /v1/otp/send.
func (h *VerificationHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req verification.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Issue(r.Context(), req); err != nil {
		writeJSON(w, otpStatus(err), OTPEnvelope{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, OTPEnvelope{Success: true, Message: "OTP sent successfully"})
}

// VerifyOTP handles POST /v1/otp/verify.
func (h *VerificationHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verification.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Verify(r.Context(), req); err != nil {
		writeJSON(w, otpStatus(err), OTPEnvelope{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, OTPEnvelope{Success: true, Message: "Email verified successfully"})
}
