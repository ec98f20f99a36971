package app

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/chain"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/monitoring"
	"github.com/smartbch/watchtower/param"
	"github.com/smartbch/watchtower/servicereg"
	"github.com/smartbch/watchtower/token"
	"github.com/smartbch/watchtower/tokennetwork"
	"github.com/smartbch/watchtower/userdeposit"
)

var ErrAllocOverflow = errors.New("genesis balance overflows uint256")

type App struct {
	Config  *param.AppConfig
	ChainID *uint256.Int

	//store
	Store *chain.Store
	Chain *chain.Chain

	// token network of the genesis token
	TokenNetwork common.Address

	Logger log.Logger
}

func NewApp(config *param.AppConfig, logger log.Logger) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	app := &App{}
	app.Config = config
	app.ChainID = uint256.NewInt(config.ChainID)
	app.Logger = logger.With("module", "app")

	store, err := CreateStore(config)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.Chain = chain.NewChain(store, app.ChainID, logger)
	RegisterExecutors(app.Chain)

	height := app.Chain.BlockNumber()
	app.Logger.Debug("storeHeight", "height", height)
	if height == 0 {
		genesis, err := LoadGenesisData(config.GenesisFilePath)
		if err == nil {
			err = app.InitGenesisState(genesis)
		}
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	out, err := app.Chain.Call(DeployerAddress, TokenNetworkRegistryAddress, tokennetwork.PackTokenToTokenNetworks(TokenAddress))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to find the token network: %w", err)
	}
	app.TokenNetwork = tokennetwork.RegistryABI.MustUnpack("token_to_token_networks", out)[0].(common.Address)
	return app, nil
}

// CreateStore opens the world state under AppDataPath, or in memory when it is empty.
func CreateStore(config *param.AppConfig) (*chain.Store, error) {
	if config.AppDataPath == "" {
		return chain.NewMemStore(), nil
	}
	return chain.NewStore(config.AppDataPath)
}

func RegisterExecutors(c *chain.Chain) {
	c.RegisterExecutor(&token.Executor{})
	c.RegisterExecutor(&servicereg.Executor{})
	c.RegisterExecutor(&userdeposit.Executor{})
	c.RegisterExecutor(&tokennetwork.RegistryExecutor{})
	c.RegisterExecutor(&tokennetwork.Executor{})
	c.RegisterExecutor(&monitoring.Executor{})
	c.RegisterExecutor(&monitoring.InternalsExecutor{})
}

// InitGenesisState deploys the contract family, airdrops the genesis token and then, as
// ordinary transactions of the deployer, creates the token network of the genesis token
// and hands the user deposit over to the monitoring service contract.
func (app *App) InitGenesisState(genesis *GenesisData) error {
	price, _ := bigutils.ParseU256(app.Config.ServiceDeposit)
	err := app.Chain.ApplyGenesis(func(ctx *types.Context) error {
		token.Deploy(ctx, TokenAddress, GenesisTokenName, GenesisTokenSymbol, GenesisTokenDecimals)
		servicereg.Deploy(ctx, ServiceRegistryAddress, TokenAddress, price, app.Config.RegistrationDuration)
		userdeposit.Deploy(ctx, UserDepositAddress, TokenAddress, app.Config.WithdrawDelay)
		tokennetwork.DeployRegistry(ctx, TokenNetworkRegistryAddress, app.ChainID,
			app.Config.SettleTimeoutMin, app.Config.SettleTimeoutMax)
		err := monitoring.Deploy(ctx, MonitoringServiceAddress, TokenAddress,
			ServiceRegistryAddress, UserDepositAddress, TokenNetworkRegistryAddress)
		if err != nil {
			return err
		}
		err = monitoring.DeployInternals(ctx, MonitoringServiceInternalsAddress, TokenAddress,
			ServiceRegistryAddress, UserDepositAddress, TokenNetworkRegistryAddress)
		if err != nil {
			return err
		}
		return app.createGenesisAccounts(ctx, genesis)
	})
	if err != nil {
		return fmt.Errorf("genesis deployment failed: %w", err)
	}

	if _, err = app.Chain.SendTx(DeployerAddress, TokenNetworkRegistryAddress,
		tokennetwork.PackCreateERC20TokenNetwork(TokenAddress)); err != nil {
		return fmt.Errorf("failed to create the token network: %w", err)
	}
	if _, err = app.Chain.SendTx(DeployerAddress, UserDepositAddress,
		userdeposit.PackInit(MonitoringServiceAddress)); err != nil {
		return fmt.Errorf("failed to init the user deposit: %w", err)
	}
	app.Logger.Info("genesis deployed", "height", app.Chain.BlockNumber())
	return nil
}

func (app *App) createGenesisAccounts(ctx *types.Context, genesis *GenesisData) error {
	if genesis == nil || len(genesis.Alloc) == 0 {
		return nil
	}
	app.Logger.Info("air drop", "accounts", len(genesis.Alloc))
	for addr, acc := range genesis.Alloc {
		if acc.Balance == nil || acc.Balance.Sign() <= 0 {
			continue
		}
		amt, overflow := uint256.FromBig(acc.Balance)
		if overflow {
			return ErrAllocOverflow
		}
		if err := token.Mint(ctx, TokenAddress, addr, amt); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) Close() error {
	return app.Store.Close()
}
