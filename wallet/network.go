package wallet

import (
	"encoding/json"
	"fmt"
	"os"
)

// NetworkConfig defines the parameters of a Dogecoin network.
type NetworkConfig struct {
	Name           string   `json:"name"`
	AddressVersion byte     `json:"address_version"`
	P2SHVersion    byte     `json:"p2sh_version"`
	WIFVersion     byte     `json:"wif_version"`
	CoinType       uint32   `json:"coin_type"` // BIP44 coin type
	DefaultPort    uint16   `json:"default_port"`
	RPCPort        uint16   `json:"rpc_port"`
	DNSSeeds       []string `json:"seeds"`
	GenesisHash    string   `json:"genesis_hash"`
}

// Predefined network configurations.
var (
	MainNet = NetworkConfig{
		Name:           "mainnet",
		AddressVersion: 0x1e, // D...
		P2SHVersion:    0x16, // 9... or A...
		WIFVersion:     0x9e,
		CoinType:       3,
		DefaultPort:    22556,
		RPCPort:        22555,
		DNSSeeds:       []string{"seed.multidoge.org", "seed2.multidoge.org"},
		GenesisHash:    "1a91e3dace36e2be3bf030a65679fe821aa1d6ef92e7c9902eb318182c355691",
	}

	TestNet = NetworkConfig{
		Name:           "testnet",
		AddressVersion: 0x71, // n...
		P2SHVersion:    0xc4,
		WIFVersion:     0xf1,
		CoinType:       1,
		DefaultPort:    44556,
		RPCPort:        44555,
		DNSSeeds:       []string{"testseed.jrn.me.uk"},
		GenesisHash:    "bb0a78264637406b6360aad926284d544d7049f45189db5664f3c4d07350559e",
	}

	RegTest = NetworkConfig{
		Name:           "regtest",
		AddressVersion: 0x6f,
		P2SHVersion:    0xc4,
		WIFVersion:     0xef,
		CoinType:       1,
		DefaultPort:    18444,
		RPCPort:        18332,
		DNSSeeds:       nil,
		GenesisHash:    "3d2160a3b5dc4a9d62e7e66a295f70313ac808440ef7400d6c0772171ce973a5",
	}
)

// predefined maps network names to their configs.
var predefined = map[string]*NetworkConfig{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name.
// If the name is not predefined, it returns ErrInvalidNetwork.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// LoadCustomNetwork loads a NetworkConfig from a JSON file, for private
// test networks with their own version bytes.
func LoadCustomNetwork(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to read network config: %w", err)
	}

	var config NetworkConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("wallet: failed to parse network config: %w", err)
	}

	if config.Name == "" {
		return nil, fmt.Errorf("wallet: network config must have a name")
	}
	if config.AddressVersion == config.P2SHVersion {
		return nil, fmt.Errorf("wallet: network %q reuses one version byte for P2PKH and P2SH", config.Name)
	}

	return &config, nil
}
