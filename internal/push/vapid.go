package push

import (
	"fmt"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// VAPID holds the application server keys used to sign push requests.
type VAPID struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Configured reports whether both keys look like real VAPID keys. A P-256
// public key is 87 base64url chars and a private key 43, so placeholders fail.
func (v VAPID) Configured() bool {
	return len(v.PublicKey) > 50 && len(v.PrivateKey) > 20
}

// subscriber is the contact the push service sees, without the mailto: prefix
// the library adds itself.
func (v VAPID) subscriber() string {
	return strings.TrimPrefix(v.Subject, "mailto:")
}

type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

func GenerateVAPIDKeys() (KeyPair, error) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return KeyPair{}, fmt.Errorf("error generating vapid keys: %w", err)
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}
