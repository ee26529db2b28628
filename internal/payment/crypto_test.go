package payment

import (
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	var key fernet.Key
	require.NoError(t, key.Generate())
	c, err := NewCipher(key.Encode())
	require.NoError(t, err)
	return c
}

func TestCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	in := ChargeRequestedPayload{
		OrderID:     "ord-1",
		Number:      "4000000000000002",
		Name:        "John Doe",
		Month:       12,
		Year:        28,
		Code:        "123",
		ChargePrice: 55.00,
	}
	token, err := c.Encrypt(in)
	require.NoError(t, err)
	assert.NotContains(t, string(token), in.Number, "card number must not appear in the token")

	var out ChargeRequestedPayload
	require.NoError(t, c.Decrypt(token, &out))
	assert.Equal(t, in, out)
}

func TestCipherRejectsTamperedToken(t *testing.T) {
	c := newTestCipher(t)

	token, err := c.Encrypt(BankResponse{Msg: "ok"})
	require.NoError(t, err)

	token[len(token)/2] ^= 0xff
	var out BankResponse
	assert.ErrorIs(t, c.Decrypt(token, &out), ErrInvalidToken)
}

func TestCipherRejectsForeignKey(t *testing.T) {
	a := newTestCipher(t)
	b := newTestCipher(t)

	token, err := a.Encrypt(BankResponse{Msg: "ok"})
	require.NoError(t, err)

	var out BankResponse
	assert.ErrorIs(t, b.Decrypt(token, &out), ErrInvalidToken)
}

func TestNewCipherBadKey(t *testing.T) {
	_, err := NewCipher("not-a-key")
	assert.Error(t, err)
}
