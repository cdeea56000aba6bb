package identity

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("identity: invalid BIP39 mnemonic")

	// ErrInvalidSeed indicates an empty seed.
	ErrInvalidSeed = errors.New("identity: invalid seed")

	// ErrInvalidNetwork indicates an unknown network name.
	ErrInvalidNetwork = errors.New("identity: invalid network name")

	// ErrInvalidRole indicates a role outside the key hierarchy.
	ErrInvalidRole = errors.New("identity: invalid role")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("identity: key derivation failed")

	// ErrInvalidKey indicates a malformed or missing public or private key.
	ErrInvalidKey = errors.New("identity: invalid key")

	// ErrInvalidSignature indicates a signature that does not verify.
	ErrInvalidSignature = errors.New("identity: invalid signature")
)
