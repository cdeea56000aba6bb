package identity

import "fmt"

// Network selects the address encoding of principals.
type Network struct {
	Name    string
	Mainnet bool
}

// Predefined networks.
var (
	MainNet = Network{Name: "mainnet", Mainnet: true}
	TestNet = Network{Name: "testnet"}
	RegTest = Network{Name: "regtest"}
)

var predefined = map[string]*Network{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name.
func GetNetwork(name string) (*Network, error) {
	if n, ok := predefined[name]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}
