package api

import (
	"context"

	"github.com/tendermint/tendermint/libs/log"

	wtapi "github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/watchtower"
)

var _ PublicWatchtowerAPI = (*watchtowerAPI)(nil)

// PublicWatchtowerAPI is how raiden nodes hand their balance proofs to the monitoring
// service running next to this node.
type PublicWatchtowerAPI interface {
	SubmitRequest(ctx context.Context, req watchtower.MonitorRequest) error
	Requests() ([]*watchtower.MonitorRequest, error)
}

type watchtowerAPI struct {
	backend wtapi.BackendService
	logger  log.Logger
}

func newWatchtowerAPI(backend wtapi.BackendService, logger log.Logger) PublicWatchtowerAPI {
	return watchtowerAPI{backend: backend, logger: logger}
}

func (api watchtowerAPI) SubmitRequest(ctx context.Context, req watchtower.MonitorRequest) error {
	api.logger.Debug("watchtower_submitRequest", "network", req.TokenNetwork.Hex())
	return api.backend.SubmitMonitorRequest(ctx, &req)
}

func (api watchtowerAPI) Requests() ([]*watchtower.MonitorRequest, error) {
	api.logger.Debug("watchtower_requests")
	reqs, err := api.backend.MonitorRequests()
	if reqs == nil && err == nil {
		reqs = []*watchtower.MonitorRequest{}
	}
	return reqs, err
}
