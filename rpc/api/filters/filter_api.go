package filters

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethfilters "github.com/ethereum/go-ethereum/eth/filters"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/chain"
)

var _ PublicFilterAPI = (*filterAPI)(nil)

var (
	deadline = 5 * time.Minute // consider a filter inactive if it has not been polled for within deadline

	errBlockHashFilter = errors.New("blocks have no hashes on this chain, use fromBlock and toBlock")
	errInvalidRange    = errors.New("fromBlock is greater than toBlock")
)

type PublicFilterAPI interface {
	GetFilterChanges(id rpc.ID) ([]*gethtypes.Log, error)
	GetFilterLogs(id rpc.ID) ([]*gethtypes.Log, error)
	GetLogs(crit gethfilters.FilterCriteria) ([]*gethtypes.Log, error)
	NewFilter(crit gethfilters.FilterCriteria) (rpc.ID, error)
	UninstallFilter(id rpc.ID) bool
	Logs(ctx context.Context, crit gethfilters.FilterCriteria) (*rpc.Subscription, error)
}

type filterAPI struct {
	backend    api.FilterService
	maxResults int
	filtersMu  sync.Mutex
	filters    map[rpc.ID]*filter
}

// filter is a helper struct that holds meta information over the filter
// and its subscription to the chain's logs.
type filter struct {
	deadline *time.Timer // filter is inactive when deadline triggers
	crit     gethfilters.FilterCriteria
	logs     []*gethtypes.Log
	s        event.Subscription
}

// NewAPI creates the filter API. eth_getLogs fails when a query matches more than
// maxResults logs, zero means no limit.
func NewAPI(backend api.FilterService, maxResults int) PublicFilterAPI {
	_api := &filterAPI{
		backend:    backend,
		maxResults: maxResults,
		filters:    make(map[rpc.ID]*filter),
	}

	go _api.timeoutLoop()
	return _api
}

// timeoutLoop runs every 5 minutes and deletes filters that have not been recently used.
// It is started when the api is created.
func (api *filterAPI) timeoutLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		<-ticker.C
		api.filtersMu.Lock()
		for id, f := range api.filters {
			select {
			case <-f.deadline.C:
				f.s.Unsubscribe()
				delete(api.filters, id)
			default:
				continue
			}
		}
		api.filtersMu.Unlock()
	}
}

func matches(l *gethtypes.Log, crit gethfilters.FilterCriteria) bool {
	if crit.FromBlock != nil && crit.FromBlock.Sign() >= 0 && crit.FromBlock.Uint64() > l.BlockNumber {
		return false
	}
	if crit.ToBlock != nil && crit.ToBlock.Sign() >= 0 && crit.ToBlock.Uint64() < l.BlockNumber {
		return false
	}
	return chain.MatchLog(l, crit.Addresses, crit.Topics)
}

// NewFilter creates a new filter and returns the filter id. It can be
// used to retrieve logs when the state changes. This method cannot be
// used to fetch logs that are already stored in the state.
//
// https://eth.wiki/json-rpc/API#eth_newFilter
func (api *filterAPI) NewFilter(crit gethfilters.FilterCriteria) (rpc.ID, error) {
	if crit.BlockHash != nil {
		return "", errBlockHashFilter
	}
	logs := make(chan []*gethtypes.Log)
	sub := api.backend.SubscribeLogsEvent(logs)
	id := rpc.NewID()

	api.filtersMu.Lock()
	api.filters[id] = &filter{
		crit:     crit,
		deadline: time.NewTimer(deadline),
		logs:     make([]*gethtypes.Log, 0),
		s:        sub,
	}
	api.filtersMu.Unlock()

	go func() {
		for {
			select {
			case ls := <-logs:
				api.filtersMu.Lock()
				if f, found := api.filters[id]; found {
					for _, l := range ls {
						if matches(l, crit) {
							f.logs = append(f.logs, l)
						}
					}
				}
				api.filtersMu.Unlock()
			case <-sub.Err():
				api.filtersMu.Lock()
				delete(api.filters, id)
				api.filtersMu.Unlock()
				return
			}
		}
	}()

	return id, nil
}

// UninstallFilter removes the filter with the given filter id.
//
// https://eth.wiki/json-rpc/API#eth_uninstallfilter
func (api *filterAPI) UninstallFilter(id rpc.ID) bool {
	api.filtersMu.Lock()
	f, found := api.filters[id]
	if found {
		delete(api.filters, id)
	}
	api.filtersMu.Unlock()
	if found {
		f.s.Unsubscribe()
	}

	return found
}

// GetFilterChanges returns the logs for the filter with the given id since
// last time it was called. This can be used for polling.
//
// https://eth.wiki/json-rpc/API#eth_getfilterchanges
func (api *filterAPI) GetFilterChanges(id rpc.ID) ([]*gethtypes.Log, error) {
	api.filtersMu.Lock()
	defer api.filtersMu.Unlock()

	f, found := api.filters[id]
	if !found {
		return nil, fmt.Errorf("filter %s not found", id)
	}

	if !f.deadline.Stop() {
		// timer expired but filter is not yet removed in timeout loop
		// receive timer value and reset timer
		<-f.deadline.C
	}
	f.deadline.Reset(deadline)

	logs := f.logs
	f.logs = make([]*gethtypes.Log, 0)
	return logs, nil
}

// GetFilterLogs returns the logs for the filter with the given id.
//
// https://eth.wiki/json-rpc/API#eth_getfilterlogs
func (api *filterAPI) GetFilterLogs(id rpc.ID) ([]*gethtypes.Log, error) {
	api.filtersMu.Lock()
	f, found := api.filters[id]
	api.filtersMu.Unlock()

	if !found {
		return nil, fmt.Errorf("filter %s not found", id)
	}
	return api.GetLogs(f.crit)
}

// GetLogs returns logs matching the given argument that are stored within the state.
//
// https://eth.wiki/json-rpc/API#eth_getLogs
func (api *filterAPI) GetLogs(crit gethfilters.FilterCriteria) ([]*gethtypes.Log, error) {
	if crit.BlockHash != nil {
		return nil, errBlockHashFilter
	}

	// Convert the RPC block numbers into internal representations
	latest := int64(api.backend.LatestHeight())
	begin := latest
	if crit.FromBlock != nil && crit.FromBlock.Sign() >= 0 {
		begin = crit.FromBlock.Int64()
	}
	end := latest
	if crit.ToBlock != nil && crit.ToBlock.Sign() >= 0 {
		end = crit.ToBlock.Int64()
	}
	if begin > end {
		return nil, errInvalidRange
	}

	q := ethereum.FilterQuery(crit)
	q.FromBlock, q.ToBlock = big.NewInt(begin), big.NewInt(end)
	logs := api.backend.FilterLogs(q)
	if api.maxResults > 0 && len(logs) > api.maxResults {
		return nil, fmt.Errorf("query returned more than %d results", api.maxResults)
	}
	return returnLogs(logs), nil
}

// Logs creates a subscription that fires for all new logs that match the given filter criteria.
func (api *filterAPI) Logs(ctx context.Context, crit gethfilters.FilterCriteria) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	if crit.BlockHash != nil {
		return &rpc.Subscription{}, errBlockHashFilter
	}

	rpcSub := notifier.CreateSubscription()
	logs := make(chan []*gethtypes.Log)
	sub := api.backend.SubscribeLogsEvent(logs)

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ls := <-logs:
				for _, l := range ls {
					if matches(l, crit) {
						_ = notifier.Notify(rpcSub.ID, l)
					}
				}
			case <-rpcSub.Err(): // client send an unsubscribe request
				return
			case <-notifier.Closed(): // connection dropped
				return
			}
		}
	}()

	return rpcSub, nil
}

// returnLogs is a helper that will return an empty log array in case the given logs array is nil,
// otherwise the given logs array is returned.
func returnLogs(logs []*gethtypes.Log) []*gethtypes.Log {
	if logs == nil {
		return []*gethtypes.Log{}
	}
	return logs
}
