package bank

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/payment"
)

func TestApprove(t *testing.T) {
	t.Run("even not ending in zero is charged", func(t *testing.T) {
		msg, ok := Approve("4000000000000002")
		assert.True(t, ok)
		assert.Equal(t, successMsg, msg)
	})

	t.Run("odd number is rejected", func(t *testing.T) {
		msg, ok := Approve("4000000000000001")
		assert.False(t, ok)
		assert.Contains(t, rejectionMsgs, msg)
	})

	t.Run("multiple of ten is rejected", func(t *testing.T) {
		msg, ok := Approve("4000000000000010")
		assert.False(t, ok)
		assert.Contains(t, rejectionMsgs, msg)
	})

	t.Run("non numeric is invalid", func(t *testing.T) {
		msg, ok := Approve("40000000000000xx")
		assert.False(t, ok)
		assert.Equal(t, paymentDataError, msg)
	})
}

func newHandler(t *testing.T) *Handler {
	t.Helper()
	var key fernet.Key
	require.NoError(t, key.Generate())
	cipher, err := payment.NewCipher(key.Encode())
	require.NoError(t, err)
	return &Handler{Cipher: cipher, Log: zap.NewNop()}
}

func chargeReq(number string) payment.BankRequest {
	return payment.BankRequest{
		Number:      number,
		Name:        "John Doe",
		Month:       12,
		Year:        28,
		Code:        "123",
		ChargePrice: 55.00,
	}
}

func postCharge(t *testing.T, h *Handler, body []byte) (int, payment.BankResponse) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ChargeUser))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out payment.BankResponse
	require.NoError(t, h.Cipher.Decrypt(raw, &out), "reply must be an encrypted {msg}")
	return resp.StatusCode, out
}

func TestChargeUser(t *testing.T) {
	h := newHandler(t)

	t.Run("successful charge", func(t *testing.T) {
		body, err := h.Cipher.Encrypt(chargeReq("4000000000000002"))
		require.NoError(t, err)

		code, out := postCharge(t, h, body)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, successMsg, out.Msg)
	})

	t.Run("rejected card", func(t *testing.T) {
		body, err := h.Cipher.Encrypt(chargeReq("4000000000000001"))
		require.NoError(t, err)

		code, out := postCharge(t, h, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, rejectionMsgs, out.Msg)
	})

	t.Run("unverifiable body is a security rejection", func(t *testing.T) {
		code, out := postCharge(t, h, []byte("garbage"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, securityError, out.Msg)
	})

	t.Run("invalid details after decrypt", func(t *testing.T) {
		req := chargeReq("4000000000000002")
		req.Code = "12"
		body, err := h.Cipher.Encrypt(req)
		require.NoError(t, err)

		code, out := postCharge(t, h, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, paymentDataError, out.Msg)
	})
}
