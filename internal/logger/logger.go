package logger

import (
	"go.uber.org/zap"
)

var l = zap.NewNop()

// Init: ortam tipine göre global logger'ı kurar.
// development -> console encoder, production -> JSON.
func Init(env string) error {
	var (
		zl  *zap.Logger
		err error
	)
	if env == "production" {
		zl, err = zap.NewProduction()
	} else {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	l = zl
	return nil
}

func L() *zap.Logger {
	return l
}

func Sync() {
	_ = l.Sync()
}
