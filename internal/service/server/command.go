package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	healthapi "github.com/oshokin/update-gateway/internal/api/grpc/health"
	httpapi "github.com/oshokin/update-gateway/internal/api/http/gateway"
	"github.com/oshokin/update-gateway/internal/config"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/logger"
	"github.com/oshokin/update-gateway/internal/service/gateway"
	"github.com/oshokin/update-gateway/internal/service/proxy"
	"github.com/oshokin/update-gateway/internal/upstream"
	"github.com/oshokin/update-gateway/internal/upstream/github"
)

// Options controls the gateway process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the HTTP server.
	ListenAddress string
	// LogLevel provides an optional log level override.
	LogLevel string
}

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// ErrBadLogLevel indicates an unknown --log-level value.
var ErrBadLogLevel = errors.New("unknown log level")

// Run starts the gateway and blocks until context is canceled or a listener fails.
// Loads configuration first, then applies command line overrides.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(settings, opts); err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	logger.Configure(level, settings.LogFormat)

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "update-gateway")

	client, err := github.New(github.Options{
		APIURL:   settings.Upstream.APIURL,
		Timeout:  settings.Upstream.Timeout,
		MaxPages: settings.Upstream.MaxPages,
	})
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	p, err := newProcess(ctx, settings, client)
	if err != nil {
		return err
	}

	return p.serve(ctx)
}

// applyOverrides lets command line flags win over file and environment.
func applyOverrides(settings *config.Config, opts *Options) error {
	if opts.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(opts.ListenAddress); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", opts.ListenAddress, err)
		}

		settings.ListenAddress = opts.ListenAddress
	}

	if opts.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(opts.LogLevel); !ok {
			return fmt.Errorf("%w: %q", ErrBadLogLevel, opts.LogLevel)
		}

		settings.LogLevel = opts.LogLevel
	}

	return nil
}

// process owns the listeners of one gateway instance.
type process struct {
	httpServer     *http.Server
	httpListener   net.Listener
	grpcServer     *grpc.Server
	healthListener net.Listener
	health         *healthapi.Server
}

// newProcess wires the services around client and binds the listeners.
func newProcess(ctx context.Context, settings *config.Config, client upstream.Client) (*process, error) {
	registry, err := settings.Registry()
	if err != nil {
		return nil, err
	}

	var (
		checker    = gateway.New(registry, client, update.NewChannelSet(settings.Channels...))
		downloader = proxy.New(registry, client)
		handler    = httpapi.NewServer(checker, downloader, settings.PublicURL)
		lc         = net.ListenConfig{}
	)

	p := &process{
		health: healthapi.NewServer(),
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
			ErrorLog:          zap.NewStdLog(logger.FromContext(ctx).Desugar()),
			// In-flight downloads outlive the shutdown signal until Shutdown gives up.
			BaseContext: func(net.Listener) context.Context {
				return context.WithoutCancel(ctx)
			},
		},
	}

	p.httpListener, err = lc.Listen(ctx, "tcp", settings.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", settings.ListenAddress, err)
	}

	if settings.HealthAddress != "" {
		p.healthListener, err = lc.Listen(ctx, "tcp", settings.HealthAddress)
		if err != nil {
			_ = p.httpListener.Close()

			return nil, fmt.Errorf("listen on %s: %w", settings.HealthAddress, err)
		}

		p.grpcServer = grpc.NewServer()
		p.health.Register(p.grpcServer)
	}

	logger.InfoKV(ctx, "Update gateway listening",
		"listen_address", p.httpListener.Addr().String(),
		"health_address", settings.HealthAddress,
		"public_url", settings.PublicURL,
		"products", registry.IDs())

	return p, nil
}

// serve blocks until ctx is canceled or a listener fails, then shuts everything down.
func (p *process) serve(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := p.httpServer.Serve(p.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	if p.grpcServer != nil {
		group.Go(func() error {
			if err := p.grpcServer.Serve(p.healthListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC health: %w", err)
			}

			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down update gateway")

		p.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := p.httpServer.Shutdown(shutdownCtx)

		if p.grpcServer != nil {
			p.grpcServer.GracefulStop()
		}

		if err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}

		return nil
	})

	p.health.SetServing(true)

	err := group.Wait()

	logger.Info(ctx, "Update gateway stopped")

	return err
}

// addresses returns the bound HTTP and health listener addresses.
func (p *process) addresses() (httpAddr, healthAddr string) {
	httpAddr = p.httpListener.Addr().String()

	if p.healthListener != nil {
		healthAddr = p.healthListener.Addr().String()
	}

	return httpAddr, healthAddr
}
