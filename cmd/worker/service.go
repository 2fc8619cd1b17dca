package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultProbeTimeout = 5 * time.Second

// probe is one dependency checked before the consumer starts.
type probe struct {
	name  string
	check func(context.Context) error
}

type consumer interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Probes       []probe
	Consumer     consumer
	ProbeTimeout time.Duration
}

// Service gates the notification consumer on its dependencies answering.
type Service struct {
	logg         *logger.Logger
	probes       []probe
	consumer     consumer
	probeTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.Consumer == nil:
		return nil, errors.New("notification consumer is required")
	}
	for _, p := range params.Probes {
		if p.check == nil {
			return nil, fmt.Errorf("probe %q has no check", p.name)
		}
	}
	timeout := params.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Service{
		logg:         params.Logger,
		probes:       params.Probes,
		consumer:     params.Consumer,
		probeTimeout: timeout,
	}, nil
}

// ready runs every probe, each under its own timeout, and reports all
// failures at once.
func (s *Service) ready(ctx context.Context) error {
	var errs error
	for _, p := range s.probes {
		probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
		err := p.check(probeCtx)
		cancel()
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", p.name), "dependency not ready", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}
	if errs != nil {
		return fmt.Errorf("worker dependencies: %w", errs)
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks on the consumer until ctx ends or the subscription fails. A
// consumer that returns nil while ctx is live is treated as a failure.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	err := s.consumer.Run(ctx)
	switch {
	case ctx.Err() != nil:
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err == nil:
		return errors.New("notification consumer exited")
	default:
		return fmt.Errorf("notification consumer: %w", err)
	}
}
