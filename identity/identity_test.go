package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testKeyring(t *testing.T, network *Network) *Keyring {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	k, err := NewKeyring(seed, network)
	require.NoError(t, err)
	return k
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(m), 24)

	_, err = SeedFromMnemonic(m, "")
	assert.NoError(t, err)
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	_, err := SeedFromMnemonic("not a mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestSeedFromMnemonic_Passphrase(t *testing.T) {
	a, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	b, err := SeedFromMnemonic(testMnemonic, "label")
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestNewKeyring_EmptySeed(t *testing.T) {
	_, err := NewKeyring(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestKeyring_Derive(t *testing.T) {
	k := testKeyring(t, nil)
	assert.Equal(t, &MainNet, k.Network())

	owner, err := k.Derive(RoleOwner, 0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/236'/0'/0/0", owner.Path)

	again, err := k.Derive(RoleOwner, 0)
	require.NoError(t, err)
	assert.Equal(t, owner.PublicKey.Compressed(), again.PublicKey.Compressed())

	oracle, err := k.Derive(RoleOracle, 0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/236'/1'/0/0", oracle.Path)
	assert.NotEqual(t, owner.PublicKey.Compressed(), oracle.PublicKey.Compressed())

	holder1, err := k.Derive(RoleHolder, 1)
	require.NoError(t, err)
	holder2, err := k.Derive(RoleHolder, 2)
	require.NoError(t, err)
	assert.NotEqual(t, holder1.PublicKey.Compressed(), holder2.PublicKey.Compressed())
}

func TestKeyring_DeriveRejectsHardenedIndex(t *testing.T) {
	k := testKeyring(t, nil)
	_, err := k.Derive(RoleOwner, hardened)
	assert.ErrorIs(t, err, ErrDerivationFailed)
	_, err = k.Derive(Role(hardened), 0)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "owner", RoleOwner.String())
	assert.Equal(t, "oracle", RoleOracle.String())
	assert.Equal(t, "holder", RoleHolder.String())
	assert.Equal(t, "role(9)", Role(9).String())
}

func TestPrincipalFromPublicKey(t *testing.T) {
	kp, err := NewKeyPair()
	require.NoError(t, err)

	main, err := kp.Principal(&MainNet)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(main, "1"), "mainnet P2PKH addresses start with 1: %s", main)

	test, err := kp.Principal(&TestNet)
	require.NoError(t, err)
	assert.NotEqual(t, main, test)

	p, pub, err := PrincipalFromBytes(kp.PublicKey.Compressed(), &MainNet)
	require.NoError(t, err)
	assert.Equal(t, main, p)
	assert.Equal(t, KeyID(kp.PublicKey), KeyID(pub))
	assert.Len(t, KeyID(pub), 20)

	_, _, err = PrincipalFromBytes([]byte{0x02, 0x01}, &MainNet)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = PrincipalFromPublicKey(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	var nilPair *KeyPair
	_, err = nilPair.Principal(nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSignVerifyMessage(t *testing.T) {
	kp, err := NewKeyPair()
	require.NoError(t, err)
	other, err := NewKeyPair()
	require.NoError(t, err)
	msg := []byte("token=1 revenue=3")

	sig, err := SignMessage(kp.PrivateKey, msg)
	require.NoError(t, err)
	require.NoError(t, VerifyMessage(kp.PublicKey, msg, sig))

	assert.ErrorIs(t, VerifyMessage(kp.PublicKey, []byte("token=1 revenue=4"), sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyMessage(other.PublicKey, msg, sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyMessage(kp.PublicKey, msg, []byte{0x30, 0x01}), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyMessage(nil, msg, sig), ErrInvalidKey)

	_, err = SignMessage(nil, msg)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestGetNetwork(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "regtest"} {
		n, err := GetNetwork(name)
		require.NoError(t, err)
		assert.Equal(t, name, n.Name)
	}
	_, err := GetNetwork("moonnet")
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}
