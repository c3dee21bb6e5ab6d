package ddbstore

import (
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// badgerLogger routes badger's internal logging into zap. Badger is chatty at
// info level about compactions and memtables, so that goes to debug.
type badgerLogger struct {
	*zap.SugaredLogger
}

var _ badger.Logger = badgerLogger{}

func newBadgerLogger(l *zap.Logger) badgerLogger {
	return badgerLogger{l.Named("badger").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.SugaredLogger.Debugf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.SugaredLogger.Warnf(format, args...)
}
