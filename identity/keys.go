// Package identity maps keys to ledger principals and signs the messages
// that external feeds submit to the ledger.
//
// Role keys are derived from one BIP39 seed along
//
//	m/44'/236'/{role}'/0/{index}
//
// so an operator can restore the owner and oracle keys from a mnemonic.
package identity

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"
)

const (
	purposeBIP44 = 44
	coinType     = 236
	hardened     = 0x80000000

	// MnemonicWords is the entropy size of generated mnemonics (24 words).
	MnemonicWords = 256
)

// Role is the account index a key is derived under.
type Role uint32

const (
	RoleOwner  Role = 0
	RoleOracle Role = 1
	RoleHolder Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleOracle:
		return "oracle"
	case RoleHolder:
		return "holder"
	default:
		return fmt.Sprintf("role(%d)", uint32(r))
	}
}

// KeyPair holds a private key and its public key.
type KeyPair struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	Path       string         `json:"path,omitempty"`
}

// NewKeyPair generates a random key pair.
func NewKeyPair() (*KeyPair, error) {
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return &KeyPair{PrivateKey: priv, PublicKey: priv.PubKey()}, nil
}

// Principal returns the ledger principal of the key on network.
func (kp *KeyPair) Principal(network *Network) (string, error) {
	if kp == nil {
		return "", fmt.Errorf("%w: nil key pair", ErrInvalidKey)
	}
	return PrincipalFromPublicKey(kp.PublicKey, network)
}

// GenerateMnemonic creates a new 24-word BIP39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicWords)
	if err != nil {
		return "", fmt.Errorf("identity: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("identity: generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// SeedFromMnemonic derives the 64-byte BIP39 seed of mnemonic and passphrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}
	return seed, nil
}

// Keyring derives role keys from a master seed.
type Keyring struct {
	master  *bip32.ExtendedKey
	network *Network
}

// NewKeyring creates a Keyring. A nil network means MainNet.
func NewKeyring(seed []byte, network *Network) (*Keyring, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if network == nil {
		network = &MainNet
	}
	params := &chaincfg.TestNet
	if network.Mainnet {
		params = &chaincfg.MainNet
	}
	master, err := bip32.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &Keyring{master: master, network: network}, nil
}

// Network returns the keyring's network.
func (k *Keyring) Network() *Network { return k.network }

// Derive returns the index-th key of role: m/44'/236'/role'/0/index.
func (k *Keyring) Derive(role Role, index uint32) (*KeyPair, error) {
	if uint32(role) >= hardened {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint32(role))
	}
	if index >= hardened {
		return nil, fmt.Errorf("%w: index %d is hardened", ErrDerivationFailed, index)
	}

	key := k.master
	for _, step := range []uint32{purposeBIP44 + hardened, coinType + hardened, uint32(role) + hardened, 0, index} {
		next, err := key.Child(step)
		if err != nil {
			return nil, fmt.Errorf("%w: %s key %d: %w", ErrDerivationFailed, role, index, err)
		}
		key = next
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: extract private key: %w", ErrDerivationFailed, err)
	}
	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  priv.PubKey(),
		Path:       fmt.Sprintf("m/44'/236'/%d'/0/%d", uint32(role), index),
	}, nil
}
