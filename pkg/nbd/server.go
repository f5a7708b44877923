package nbd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/pojntfx/go-nbd/pkg/server"
	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
)

// Server exports a device over NBD on a unix socket.
// Every connection gets its own handle on the shared device.
type Server struct {
	device     *scull.Device
	socketPath string
	name       string
	size       int64
	logger     *zap.Logger

	ready chan struct{}
}

func NewServer(device *scull.Device, socketPath, name string, size int64, logger *zap.Logger) *Server {
	return &Server{
		device:     device,
		socketPath: socketPath,
		name:       name,
		size:       size,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the server listens on the socket.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) SocketPath() string {
	return s.socketPath
}

func (s *Server) Run(ctx context.Context) error {
	err := os.Remove(s.socketPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing socket path %s: %w", s.socketPath, err)
	}

	var lc net.ListenConfig

	l, err := lc.Listen(ctx, "unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	go func() {
		<-ctx.Done()

		closeErr := l.Close()
		if closeErr != nil {
			s.logger.Error("failed to close listener", zap.Error(closeErr))
		}
	}()

	close(s.ready)

	s.logger.Info("nbd server listening",
		zap.String("socket", s.socketPath),
		zap.String("export", s.name),
		zap.Int64("size", s.size),
	)

	for {
		conn, acceptErr := l.Accept()
		if acceptErr != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				s.logger.Error("failed to accept connection", zap.Error(acceptErr))

				continue
			}
		}

		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		_ = conn.Close()

		if r := recover(); r != nil {
			s.logger.Error("recovering from nbd server panic", zap.Any("panic", r))
		}
	}()

	h, err := s.device.Open()
	if err != nil {
		s.logger.Error("could not open device", zap.Error(err))

		return
	}

	defer func() {
		closeErr := h.Close()
		if closeErr != nil {
			s.logger.Error("failed to close device handle", zap.Error(closeErr))
		}
	}()

	blockSize := uint32(block.Size)

	err = server.Handle(
		conn,
		[]*server.Export{
			{
				Name:    s.name,
				Backend: NewExport(h, s.size),
			},
		},
		&server.Options{
			ReadOnly:           false,
			MinimumBlockSize:   blockSize,
			PreferredBlockSize: blockSize,
			MaximumBlockSize:   blockSize,
			SupportsMultiConn:  true,
		})
	if err != nil {
		s.logger.Warn("client disconnected with error", zap.Error(err))

		return
	}

	s.logger.Debug("client disconnected")
}
