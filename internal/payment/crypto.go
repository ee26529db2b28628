package payment

import (
	"encoding/json"
	"errors"

	"github.com/fernet/fernet-go"
)

// ErrInvalidToken: the payload did not verify against the shared key.
// The bank treats this as a security rejection, not a system error.
var ErrInvalidToken = errors.New("payment token rejected")

// Cipher wraps the symmetric fernet key shared between shop and bank.
// Both sides exchange only encrypted JSON bodies.
type Cipher struct {
	key *fernet.Key
}

func NewCipher(encodedKey string) (*Cipher, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

func (c *Cipher) Encrypt(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return fernet.EncryptAndSign(b, c.key)
}

func (c *Cipher) Decrypt(token []byte, out any) error {
	b := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{c.key})
	if b == nil {
		return ErrInvalidToken
	}
	return json.Unmarshal(b, out)
}
