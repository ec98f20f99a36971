package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
)

// Addresses of the contracts deployed at genesis.
var (
	DeployerAddress                   = common.HexToAddress("0x0000000000000000000000000000000000002710")
	TokenAddress                      = common.HexToAddress("0x0000000000000000000000000000000000002711")
	ServiceRegistryAddress            = common.HexToAddress("0x0000000000000000000000000000000000002712")
	UserDepositAddress                = common.HexToAddress("0x0000000000000000000000000000000000002713")
	TokenNetworkRegistryAddress       = common.HexToAddress("0x0000000000000000000000000000000000002714")
	MonitoringServiceAddress          = common.HexToAddress("0x0000000000000000000000000000000000002715")
	MonitoringServiceInternalsAddress = common.HexToAddress("0x0000000000000000000000000000000000002716")
)

const (
	GenesisTokenName     = "CustomToken"
	GenesisTokenSymbol   = "TKN"
	GenesisTokenDecimals = 18
)

// GenesisData is the content of genesis.json. The balances of Alloc are token balances
// of the genesis token, the chain has no native coin.
type GenesisData struct {
	Alloc gethcore.GenesisAlloc `json:"alloc"`
}

// LoadGenesisData reads a genesis file, a missing file is an empty genesis.
func LoadGenesisData(path string) (*GenesisData, error) {
	genesis := &GenesisData{}
	if path == "" {
		return genesis, nil
	}
	bz, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return genesis, nil
	} else if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(bz, genesis); err != nil {
		return nil, fmt.Errorf("invalid genesis file %s: %w", path, err)
	}
	return genesis, nil
}
