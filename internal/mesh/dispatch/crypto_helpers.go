package dispatch

import (
	"io"

	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
)

// ephemeralSharedSecret computes the ECDH secret for an ANON_REQ login:
// the client's ephemeral key is a raw X25519 public key (not an Ed25519
// identity), so it is used directly against our X25519 private scalar.
func ephemeralSharedSecret(self *identity.Identity, ephemeralPub [32]byte) ([32]byte, error) {
	secret, err := identity.SharedSecret(self.X25519Private(), ephemeralPub)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], secret)
	return out, nil
}

// sharedSecretFor computes the ECDH secret with a known contact's
// Ed25519 identity public key.
func sharedSecretFor(self *identity.Identity, dest identity.PublicKey) ([32]byte, error) {
	return meshcrypto.SharedSecret(self.Private, dest)
}

func buildLoginResponse(rand io.Reader, ts uint32, keepAliveSeconds uint32, perm session.Permission, firmwareByte byte) ([]byte, error) {
	return session.BuildLoginOK(rand, ts, keepAliveSeconds, perm, firmwareByte)
}
