package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testWallet(t *testing.T, net *NetworkConfig) *Wallet {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	w, err := NewWallet(seed, net)
	require.NoError(t, err)
	return w
}

// --- Mnemonic tests ---

func TestGenerateMnemonic(t *testing.T) {
	tests := []struct {
		bits  int
		words int
	}{
		{Mnemonic12Words, 12},
		{Mnemonic24Words, 24},
	}
	for _, tt := range tests {
		mnemonic, err := GenerateMnemonic(tt.bits)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(mnemonic), tt.words)
		assert.True(t, ValidateMnemonic(mnemonic))
	}

	_, err := GenerateMnemonic(192)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestSeedFromMnemonic(t *testing.T) {
	s1, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Len(t, s1, 64)

	s2, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	s3, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3)

	_, err = SeedFromMnemonic("foo bar baz", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

// --- Seed encryption ---

func TestEncryptDecryptSeed_RoundTrip(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	enc, err := EncryptSeed(seed, "hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(enc), "DOGS"))

	got, err := DecryptSeed(enc, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	again, err := EncryptSeed(seed, "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "salt and nonce must be random")
}

func TestDecryptSeed_Failures(t *testing.T) {
	enc, err := EncryptSeed([]byte("seed-bytes"), "right")
	require.NoError(t, err)

	_, err = DecryptSeed(enc, "wrong")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	corrupted := append([]byte(nil), enc...)
	corrupted[len(corrupted)-1] ^= 0xff
	_, err = DecryptSeed(corrupted, "right")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	_, err = DecryptSeed(badMagic, "right")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = DecryptSeed([]byte("short"), "right")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = EncryptSeed(nil, "pw")
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "wallet.enc")
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	require.NoError(t, SaveSeedFile(path, seed, "pw"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	err = SaveSeedFile(path, seed, "pw")
	assert.ErrorIs(t, err, ErrSeedFileExists)

	w, err := Open(path, "pw", &RegTest)
	require.NoError(t, err)
	assert.Equal(t, "regtest", w.Network().Name)

	_, err = Open(path, "nope", &RegTest)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing"), "pw")
	assert.Error(t, err)
}

// --- HD derivation ---

func TestNewWallet(t *testing.T) {
	_, err := NewWallet(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSeed)

	w := testWallet(t, nil)
	assert.Equal(t, "mainnet", w.Network().Name)
}

func TestFundingKey(t *testing.T) {
	w := testWallet(t, &MainNet)
	kp, err := w.FundingKey(FundingAccount)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/3'/0'/0/0", kp.Path)
	assert.Len(t, kp.PublicKey.Compressed(), 33)
	assert.Len(t, kp.PubKeyHash(), 20)

	again, err := w.DeriveKey(0, ExternalChain, 0)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey.Compressed(), again.PublicKey.Compressed())

	change, err := w.DeriveKey(0, InternalChain, 0)
	require.NoError(t, err)
	assert.NotEqual(t, kp.PublicKey.Compressed(), change.PublicKey.Compressed())

	other, err := w.FundingKey(1)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/3'/1'/0/0", other.Path)
	assert.NotEqual(t, kp.PublicKey.Compressed(), other.PublicKey.Compressed())
}

func TestDeriveKey_CoinTypePerNetwork(t *testing.T) {
	main := testWallet(t, &MainNet)
	test := testWallet(t, &TestNet)

	mk, err := main.FundingKey(0)
	require.NoError(t, err)
	tk, err := test.FundingKey(0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/1'/0'/0/0", tk.Path)
	assert.NotEqual(t, mk.PublicKey.Compressed(), tk.PublicKey.Compressed())
}

func TestDeriveKey_IndexOutOfRange(t *testing.T) {
	w := testWallet(t, &MainNet)
	_, err := w.DeriveKey(Hardened, 0, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = w.DeriveKey(0, 0, Hardened)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = w.DeriveKey(0, 0, MaxIndex)
	assert.NoError(t, err)
}

// --- Addresses ---

func TestFundingAddress_Prefixes(t *testing.T) {
	tests := []struct {
		net      *NetworkConfig
		prefixes string
	}{
		{&MainNet, "D"},
		{&TestNet, "n"},
		{&RegTest, "mn"},
	}
	for _, tt := range tests {
		t.Run(tt.net.Name, func(t *testing.T) {
			w := testWallet(t, tt.net)
			addr, err := w.FundingAddress(0)
			require.NoError(t, err)
			assert.Contains(t, tt.prefixes, addr[:1])

			kp, err := w.FundingKey(0)
			require.NoError(t, err)
			pkh, err := tt.net.DecodeAddress(addr)
			require.NoError(t, err)
			assert.Equal(t, kp.PubKeyHash(), pkh)
		})
	}
}

func TestDecodeAddress_Errors(t *testing.T) {
	pkh := make([]byte, 20)
	pkh[0] = 0x42

	mainAddr, err := MainNet.EncodeAddress(pkh)
	require.NoError(t, err)

	_, err = TestNet.DecodeAddress(mainAddr)
	assert.ErrorIs(t, err, ErrWrongNetwork)

	p2sh, err := MainNet.EncodeScriptAddress(pkh)
	require.NoError(t, err)
	assert.Contains(t, "9A", p2sh[:1])
	_, err = MainNet.DecodeAddress(p2sh)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	bad := mainAddr[:len(mainAddr)-1] + "1"
	if bad == mainAddr {
		bad = mainAddr[:len(mainAddr)-1] + "2"
	}
	_, err = MainNet.DecodeAddress(bad)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	long := base58.CheckEncode(make([]byte, 21), MainNet.AddressVersion)
	_, err = MainNet.DecodeAddress(long)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = MainNet.EncodeAddress([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestWIF_RoundTrip(t *testing.T) {
	w := testWallet(t, &MainNet)
	kp, err := w.FundingKey(0)
	require.NoError(t, err)

	wif, err := MainNet.EncodeWIF(kp.PrivateKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wif, "Q"), wif)

	priv, err := MainNet.DecodeWIF(wif)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey.Compressed(), priv.PubKey().Compressed())

	_, err = RegTest.DecodeWIF(wif)
	assert.ErrorIs(t, err, ErrWrongNetwork)

	uncompressed := base58.CheckEncode(kp.PrivateKey.Serialize(), MainNet.WIFVersion)
	_, err = MainNet.DecodeWIF(uncompressed)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

// --- Networks ---

func TestGetNetwork(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "regtest"} {
		net, err := GetNetwork(name)
		require.NoError(t, err)
		assert.Equal(t, name, net.Name)
	}
	_, err := GetNetwork("teratestnet")
	assert.ErrorIs(t, err, ErrInvalidNetwork)

	assert.Equal(t, uint32(3), MainNet.CoinType)
	assert.Equal(t, byte(0x1e), MainNet.AddressVersion)
	assert.Equal(t, uint16(22555), MainNet.RPCPort)
}

func TestLoadCustomNetwork(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	net, err := LoadCustomNetwork(write("ok.json",
		`{"name":"devnet","address_version":111,"p2sh_version":196,"wif_version":239,"coin_type":1,"rpc_port":19000}`))
	require.NoError(t, err)
	assert.Equal(t, "devnet", net.Name)
	assert.Equal(t, byte(0x6f), net.AddressVersion)
	assert.Equal(t, uint16(19000), net.RPCPort)

	_, err = LoadCustomNetwork(write("noname.json", `{"address_version":1,"p2sh_version":2}`))
	assert.Error(t, err)

	_, err = LoadCustomNetwork(write("clash.json", `{"name":"x","address_version":5,"p2sh_version":5}`))
	assert.Error(t, err)

	_, err = LoadCustomNetwork(write("bad.json", `{`))
	assert.Error(t, err)

	_, err = LoadCustomNetwork(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
