package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	metricsPathConstant           = "/metrics"
	readHeaderTimeoutConstant     = 5 * time.Second
	shutdownTimeoutConstant       = 5 * time.Second
	listenFailureTemplateConstant = "listen on %s: %w"
	serveFailureTemplateConstant  = "serve metrics: %w"
	serverStartedMessageConstant  = "metrics endpoint listening"
	serverStoppedMessageConstant  = "metrics endpoint stopped"
	listenAddressFieldConstant    = "listen_address"
)

// Server exposes a Collector over HTTP until its context ends.
type Server struct {
	collector     *Collector
	listenAddress string
	logger        *zap.Logger
}

// NewServer constructs a Server for listenAddress.
func NewServer(collector *Collector, listenAddress string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{collector: collector, listenAddress: listenAddress, logger: logger}
}

// Listen binds the configured address.
func (server *Server) Listen() (net.Listener, error) {
	listener, listenError := net.Listen("tcp", server.listenAddress)
	if listenError != nil {
		return nil, fmt.Errorf(listenFailureTemplateConstant, server.listenAddress, listenError)
	}
	return listener, nil
}

// Serve answers /metrics on listener and shuts down when executionContext is cancelled.
func (server *Server) Serve(executionContext context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPathConstant, server.collector.Handler())
	httpServer := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeoutConstant}

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- httpServer.Serve(listener)
	}()
	server.logger.Info(serverStartedMessageConstant, zap.String(listenAddressFieldConstant, listener.Addr().String()))

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf(serveFailureTemplateConstant, serveError)
	case <-executionContext.Done():
		shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeoutConstant)
		defer cancel()
		shutdownError := httpServer.Shutdown(shutdownContext)
		server.logger.Info(serverStoppedMessageConstant, zap.String(listenAddressFieldConstant, listener.Addr().String()))
		return shutdownError
	}
}
