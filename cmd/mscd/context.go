package main

import (
	"os"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/param"
)

type Context struct {
	Config *param.AppConfig
	Logger log.Logger
}

func NewDefaultContext() *Context {
	return NewContext(
		param.DefaultAppConfig(),
		log.NewTMLogger(log.NewSyncWriter(os.Stdout)),
	)
}

func NewContext(config *param.AppConfig, logger log.Logger) *Context {
	return &Context{config, logger}
}
