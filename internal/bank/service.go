// Package bank is the reference bank double the payment orchestrator talks
// to in development and tests. Its approval rule is a stand-in, not payment
// logic: any real acquirer slots in behind the same encrypted contract.
package bank

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/payment"
)

const (
	serverErrorMsg   = "Internal Server Error!"
	paymentDataError = "Invalid payments details"
	securityError    = "Payment denied due to security reason!"
	successMsg       = "Successfully payment transaction."
)

var rejectionMsgs = []string{
	"Not enough money on the card!",
	"Invalid card details!",
	"Card is expired!",
	"Card is blocked!",
}

var chargeValidate = validator.New()

type chargeRequest struct {
	Number      string  `validate:"required,number,len=16"`
	Name        string  `validate:"required"`
	Month       int     `validate:"required,min=1,max=12"`
	Year        int     `validate:"required,min=0"`
	Code        string  `validate:"required,number,len=3"`
	ChargePrice float64 `validate:"gte=0"`
}

type Handler struct {
	Cipher *payment.Cipher
	Log    *zap.Logger
}

// ChargeUser decrypts and validates the payment details and charges the
// card. Whatever happens, the reply body is an encrypted {msg}.
func (h *Handler) ChargeUser(w http.ResponseWriter, r *http.Request) {
	msg, code := serverErrorMsg, http.StatusInternalServerError

	body, err := io.ReadAll(r.Body)
	if err == nil {
		msg, code = h.charge(body)
	}

	encrypted, err := h.Cipher.Encrypt(payment.BankResponse{Msg: msg})
	if err != nil {
		h.Log.Error("bank response encryption failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.Log.Info("bank response", zap.Int("status", code))
	w.WriteHeader(code)
	_, _ = w.Write(encrypted)
}

func (h *Handler) charge(body []byte) (string, int) {
	var req payment.BankRequest
	if err := h.Cipher.Decrypt(body, &req); err != nil {
		if errors.Is(err, payment.ErrInvalidToken) {
			h.Log.Warn("payment token failed verification")
			return securityError, http.StatusBadRequest
		}
		h.Log.Error("bank request undecodable", zap.Error(err))
		return serverErrorMsg, http.StatusInternalServerError
	}

	details := chargeRequest{
		Number:      req.Number,
		Name:        req.Name,
		Month:       req.Month,
		Year:        req.Year,
		Code:        req.Code,
		ChargePrice: req.ChargePrice,
	}
	if err := chargeValidate.Struct(&details); err != nil {
		h.Log.Info("invalid payment details", zap.Error(err))
		return paymentDataError, http.StatusBadRequest
	}

	if msg, ok := Approve(req.Number); !ok {
		return msg, http.StatusBadRequest
	}
	return successMsg, http.StatusOK
}

// Approve is the double's stand-in rule: a card number that reads as an
// even integer not ending in zero is charged; anything else draws one of
// the canned rejections.
func Approve(number string) (string, bool) {
	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return paymentDataError, false
	}
	if n%10 != 0 && n%2 == 0 {
		return successMsg, true
	}
	return rejectionMsgs[rand.Intn(len(rejectionMsgs))], false
}
