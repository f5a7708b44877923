package logger

import (
	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
)

// Observer logs every device handle operation when it returns.
type Observer struct {
	logger *zap.Logger
}

var _ scull.Observer = (*Observer)(nil)

func NewObserver(logger *zap.Logger) *Observer {
	return &Observer{
		logger: logger,
	}
}

func (o *Observer) Begin(call scull.Call) func(int64, error) {
	return func(result int64, err error) {
		fields := []zap.Field{
			zap.Stringer("device_id", call.Device),
			zap.String("op", string(call.Op)),
			zap.Int64("offset", call.Offset),
		}

		if call.Op == scull.OpSeek {
			fields = append(fields,
				zap.Stringer("whence", call.Whence),
				zap.Int64("position", result),
			)
		} else {
			fields = append(fields,
				zap.Int64("requested", call.Length),
				zap.Int64("transferred", result),
			)
		}

		if err != nil {
			o.logger.Error("device operation failed", append(fields, zap.Error(err))...)

			return
		}

		o.logger.Debug("device operation", fields...)
	}
}
