package identity

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
)

// PrincipalFromPublicKey returns the P2PKH address of pub, which is the
// principal the ledger knows the key holder by.
func PrincipalFromPublicKey(pub *ec.PublicKey, network *Network) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", ErrInvalidKey)
	}
	if network == nil {
		network = &MainNet
	}
	addr, err := script.NewAddressFromPublicKey(pub, network.Mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return addr.AddressString, nil
}

// PrincipalFromBytes parses a compressed public key and returns its principal.
func PrincipalFromBytes(compressed []byte, network *Network) (string, *ec.PublicKey, error) {
	pub, err := ec.PublicKeyFromBytes(compressed)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	p, err := PrincipalFromPublicKey(pub, network)
	if err != nil {
		return "", nil, err
	}
	return p, pub, nil
}

// KeyID returns HASH160 of the compressed public key.
func KeyID(pub *ec.PublicKey) []byte {
	return bsvhash.Hash160(pub.Compressed())
}

// SignMessage signs SHA-256(msg) and returns the DER-encoded signature.
func SignMessage(priv *ec.PrivateKey, msg []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidKey)
	}
	sig, err := priv.Sign(bsvhash.Sha256(msg))
	if err != nil {
		return nil, fmt.Errorf("identity: sign: %w", err)
	}
	return sig.Serialize(), nil
}

// VerifyMessage checks a DER signature over SHA-256(msg) against pub.
func VerifyMessage(pub *ec.PublicKey, msg, der []byte) error {
	if pub == nil {
		return fmt.Errorf("%w: nil public key", ErrInvalidKey)
	}
	sig, err := ec.ParseDERSignature(der)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !sig.Verify(bsvhash.Sha256(msg), pub) {
		return ErrInvalidSignature
	}
	return nil
}
