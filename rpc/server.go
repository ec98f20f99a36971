package rpc

import (
	"net"
	"net/http"
	"strings"

	tmlog "github.com/tendermint/tendermint/libs/log"
	tmservice "github.com/tendermint/tendermint/libs/service"
	tmrpcserver "github.com/tendermint/tendermint/rpc/jsonrpc/server"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/cors"

	"github.com/smartbch/watchtower/api"
	rpcapi "github.com/smartbch/watchtower/rpc/api"
)

var _ tmservice.Service = (*Server)(nil)

// serve JSON-RPC over HTTP & WebSocket
type Server struct {
	tmservice.BaseService

	rpcAddr        string // listen address of rest-server
	wsAddr         string // listen address of ws server
	allowedOrigins []string
	maxLogResults  int

	logger  tmlog.Logger
	backend api.BackendService

	httpServer   *gethrpc.Server
	httpListener net.Listener
	wsServer     *gethrpc.Server
	wsListener   net.Listener

	testKeys []string
}

// NewServer creates the JSON-RPC service. corsDomains is a comma separated list of
// origins, an empty list disables CORS.
func NewServer(rpcAddr string, wsAddr string, corsDomains string, maxLogResults int,
	backend api.BackendService, logger tmlog.Logger, testKeys []string) *Server {

	impl := &Server{
		rpcAddr:        rpcAddr,
		wsAddr:         wsAddr,
		allowedOrigins: splitAndTrim(corsDomains),
		maxLogResults:  maxLogResults,
		backend:        backend,
		logger:         logger,
		testKeys:       testKeys,
	}
	impl.BaseService = *tmservice.NewBaseService(logger, "RPC", impl)
	return impl
}

func splitAndTrim(input string) []string {
	res := make([]string, 0)
	for _, s := range strings.Split(input, ",") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}

func (server *Server) OnStart() error {
	apis := rpcapi.GetAPIs(server.backend,
		server.logger, server.testKeys, server.maxLogResults)
	if err := server.startHTTP(apis); err != nil {
		return err
	}
	if err := server.startWS(apis); err != nil {
		server.stopHTTP()
		return err
	}
	return nil
}

func (server *Server) startHTTP(apis []gethrpc.API) (err error) {
	server.httpServer = gethrpc.NewServer()
	if err = registerApis(server.httpServer, apis); err != nil {
		return err
	}

	server.httpListener, err = tmrpcserver.Listen(
		server.rpcAddr, tmrpcserver.DefaultConfig())
	if err != nil {
		return err
	}

	handler := newCorsHandler(server.httpServer, server.allowedOrigins)
	go func() {
		_ = tmrpcserver.Serve(server.httpListener, handler, server.logger,
			tmrpcserver.DefaultConfig())
	}()
	return nil
}

func (server *Server) startWS(apis []gethrpc.API) (err error) {
	server.wsServer = gethrpc.NewServer()
	if err = registerApis(server.wsServer, apis); err != nil {
		return err
	}

	server.wsListener, err = tmrpcserver.Listen(
		server.wsAddr, tmrpcserver.DefaultConfig())
	if err != nil {
		return err
	}
	wsh := server.wsServer.WebsocketHandler(server.allowedOrigins)

	go func() {
		_ = tmrpcserver.Serve(server.wsListener, wsh, server.logger,
			tmrpcserver.DefaultConfig())
	}()
	return nil
}

// HTTPAddr is the bound address of the HTTP endpoint, nil before start.
func (server *Server) HTTPAddr() net.Addr {
	if server.httpListener == nil {
		return nil
	}
	return server.httpListener.Addr()
}

// WSAddr is the bound address of the WebSocket endpoint, nil before start.
func (server *Server) WSAddr() net.Addr {
	if server.wsListener == nil {
		return nil
	}
	return server.wsListener.Addr()
}

func (server *Server) OnStop() {
	server.stopHTTP()
	server.stopWS()
}

func (server *Server) stopHTTP() {
	if server.httpServer != nil {
		server.httpServer.Stop()
	}
	if server.httpListener != nil {
		_ = server.httpListener.Close()
	}
}

func (server *Server) stopWS() {
	if server.wsServer != nil {
		server.wsServer.Stop()
	}
	if server.wsListener != nil {
		_ = server.wsListener.Close()
	}
}

func registerApis(rpcServer *gethrpc.Server, apis []gethrpc.API) error {
	for _, _api := range apis {
		if err := rpcServer.RegisterName(_api.Namespace, _api.Service); err != nil {
			return err
		}
	}
	return nil
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	// disable CORS support if user has not specified a custom CORS configuration
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}
