package handler

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Pinger is a dependency whose reachability the health service reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Server implements grpc.health.v1.Health for readiness. The overall status is SERVING only
// when every required dependency answers; optional ones are reported under their own name.
type Server struct {
	healthpb.UnimplementedHealthServer
	deps     map[string]Pinger
	optional map[string]Pinger
	services map[string]bool
	timeout  time.Duration
}

// NewServer returns a Health server over the required deps. services are the names accepted
// in HealthCheckRequest.Service besides "" (the whole server).
func NewServer(deps map[string]Pinger, services ...string) *Server {
	s := &Server{deps: deps, services: map[string]bool{"": true}, timeout: 2 * time.Second}
	for _, name := range services {
		s.services[name] = true
	}
	return s
}

// WithOptional registers dependencies the service degrades without, such as a cache. They
// never change the overall status; Check with Service set to a dependency's name reports
// that dependency alone.
func (s *Server) WithOptional(deps map[string]Pinger) *Server {
	s.optional = deps
	return s
}

// Ready pings every required dependency and returns the first failure.
func (s *Server) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for name, p := range s.deps {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Check returns service health status for Kubernetes, load balancers, and CI. A failed
// dependency is reported as NOT_SERVING, not as an RPC error.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	var err error
	if p, ok := s.optional[req.GetService()]; ok && req.GetService() != "" {
		err = s.pingOne(ctx, p)
	} else if s.services[req.GetService()] {
		err = s.Ready(ctx)
	} else {
		return nil, status.Error(codes.NotFound, "unknown service")
	}
	if err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func (s *Server) pingOne(ctx context.Context, p Pinger) error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.Ping(ctx)
}
