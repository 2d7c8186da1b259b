package artifact

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork of x/crypto/openpgp
)

// Verifier checks detached OpenPGP signatures against a fixed keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier loads an armored or binary keyring from path.
func NewVerifier(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return &Verifier{keyring: keyring}, nil
}

// VerifyDetached checks that sigPath is a valid signature of filePath by a
// key in the keyring. Armored and binary signatures are both accepted.
func (v *Verifier) VerifyDetached(filePath, sigPath string) error {
	signed, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer signed.Close()

	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}

	if _, err = openpgp.CheckArmoredDetachedSignature(v.keyring, signed, bytes.NewReader(sig), nil); err == nil {
		return nil
	}

	if _, err := signed.Seek(0, 0); err != nil {
		return fmt.Errorf("rewind file: %w", err)
	}
	if _, err = openpgp.CheckDetachedSignature(v.keyring, signed, bytes.NewReader(sig), nil); err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}
