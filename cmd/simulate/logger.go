package main

import (
	"go.uber.org/zap"

	"github.com/uhyunpark/l3sim/params"
	"github.com/uhyunpark/l3sim/pkg/util"
)

func newLogger(cfg params.Output) (*zap.Logger, error) {
	if cfg.LogFile == "" {
		return util.NewLogger(cfg.Verbose)
	}
	return util.NewLoggerWithFile(cfg.LogFile, cfg.Verbose)
}
