package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/chain"
	"github.com/smartbch/watchtower/internal/ethutils"
	"github.com/smartbch/watchtower/metrics"
	"github.com/smartbch/watchtower/param"
	"github.com/smartbch/watchtower/rpc"
	"github.com/smartbch/watchtower/watchtower"
)

const (
	flagRpcAddr       = "rpc.http-addr"
	flagRpcWsAddr     = "rpc.ws-addr"
	flagRpcCorsDomain = "rpc.corsdomain"
	flagMetricsAddr   = "metrics-addr"
	flagUnlock        = "unlock"
	flagWatchtower    = "watchtower"
	flagWatchtowerKey = "watchtower.key"
	flagWatchtowerRpc = "watchtower.rpc-url"
)

func StartCmd(ctx *Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the chain, its JSON-RPC endpoints and the optional watchtower",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStartFlags(ctx.Config)
			ctx.Logger.Info("starting monitoring service chain", "chain_id", ctx.Config.ChainID)
			return startInProcess(ctx)
		},
	}

	cmd.Flags().String(flagRpcAddr, "", "HTTP-RPC server listening address, overrides rpc_http_addr")
	cmd.Flags().String(flagRpcWsAddr, "", "WS-RPC server listening address, overrides rpc_ws_addr")
	cmd.Flags().String(flagRpcCorsDomain, "", "Comma separated list of domains from which to accept cross origin requests (browser enforced)")
	cmd.Flags().String(flagMetricsAddr, "", "Prometheus listening address, overrides metrics_addr")
	cmd.Flags().String(flagUnlock, "", "Comma separated list of private keys to unlock (only for testing)")
	cmd.Flags().Bool(flagWatchtower, false, "Run the watchtower, same as watchtower_enabled")
	cmd.Flags().String(flagWatchtowerKey, "", "Hex private key of the watchtower, overrides watchtower_key")
	cmd.Flags().String(flagWatchtowerRpc, "", "JSON-RPC endpoint the watchtower watches, overrides watchtower_rpc_url")
	return cmd
}

func applyStartFlags(conf *param.AppConfig) {
	setIfNotEmpty := func(flag string, target *string) {
		if v := viper.GetString(flag); v != "" {
			*target = v
		}
	}
	setIfNotEmpty(flagRpcAddr, &conf.RpcHttpAddr)
	setIfNotEmpty(flagRpcWsAddr, &conf.RpcWsAddr)
	setIfNotEmpty(flagRpcCorsDomain, &conf.RpcCorsDomain)
	setIfNotEmpty(flagMetricsAddr, &conf.MetricsAddr)
	setIfNotEmpty(flagWatchtowerKey, &conf.WatchtowerKey)
	setIfNotEmpty(flagWatchtowerRpc, &conf.WatchtowerRpcUrl)
	if viper.GetBool(flagWatchtower) {
		conf.WatchtowerEnabled = true
	}
}

func startInProcess(ctx *Context) error {
	conf := ctx.Config
	_app, err := app.NewApp(conf, ctx.Logger)
	if err != nil {
		return err
	}

	var wt *watchtower.Watchtower
	var wtDB *watchtower.DB
	if conf.WatchtowerEnabled {
		if wt, wtDB, err = startWatchtower(ctx, _app); err != nil {
			_ = _app.Close()
			return err
		}
	}

	rpcServer := rpc.NewServer(conf.RpcHttpAddr, conf.RpcWsAddr, conf.RpcCorsDomain,
		conf.RpcEthGetLogsMaxResults, api.NewBackend(_app, wt), ctx.Logger,
		splitKeys(viper.GetString(flagUnlock)))
	if err = rpcServer.Start(); err != nil {
		return err
	}
	metricsServer := startMetricsServer(conf.MetricsAddr, ctx)

	TrapSignal(func() {
		_ = rpcServer.Stop()
		if wt != nil {
			_ = wt.Stop()
			_ = wtDB.Close()
		}
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		if err := _app.Close(); err != nil {
			ctx.Logger.Error("failed to close the app", "err", err)
		}
		ctx.Logger.Info("exiting...")
	})

	// run forever
	select {}
}

// startWatchtower watches the in-process chain unless watchtower_rpc_url names
// another node.
func startWatchtower(ctx *Context, _app *app.App) (*watchtower.Watchtower, *watchtower.DB, error) {
	conf := ctx.Config
	key, _, err := ethutils.HexToPrivKey(conf.WatchtowerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid watchtower_key: %w", err)
	}
	pollInterval := time.Duration(conf.PollIntervalSeconds) * time.Second
	if pollInterval == 0 {
		pollInterval = param.DefaultPollIntervalSeconds * time.Second
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var backend watchtower.Backend = chain.NewClient(_app.Chain)
	if conf.WatchtowerRpcUrl != "" {
		if backend, err = watchtower.DialBackend(dialCtx, conf.WatchtowerRpcUrl); err != nil {
			return nil, nil, err
		}
	}
	db, err := watchtower.OpenDB(conf.WatchtowerDataPath)
	if err != nil {
		return nil, nil, err
	}
	wt, err := watchtower.NewWatchtower(dialCtx, backend, db, app.MonitoringServiceAddress, key,
		pollInterval, ctx.Logger)
	if err == nil {
		err = wt.Start()
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	ctx.Logger.Info("watchtower started", "address", wt.Address().Hex())
	return wt, db, nil
}

func startMetricsServer(addr string, ctx *Context) *http.Server {
	if addr == "" {
		return nil
	}
	metrics.RegisterMetrics(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ctx.Logger.Error("metrics server stopped", "err", err)
		}
	}()
	go sampleHostMemory(ctx)
	ctx.Logger.Info("serving metrics", "addr", addr)
	return srv
}

const hostMemoryInterval = 15 * time.Second

func sampleHostMemory(ctx *Context) {
	ticker := time.NewTicker(hostMemoryInterval)
	defer ticker.Stop()
	for {
		if err := metrics.UpdateHostMemory(); err != nil {
			ctx.Logger.Info("host memory stats unavailable", "err", err)
			return
		}
		<-ticker.C
	}
}
