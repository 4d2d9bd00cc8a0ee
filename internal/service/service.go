// Package service runs the exporter until it is asked to stop by a signal.
package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"smartctlexporter/internal/logger"
)

// Service runs a RunFunc under process signal control.
type Service interface {
	// Run blocks until the run function returns or a shutdown signal is
	// handled.
	Run(ctx context.Context) error

	// Stop cancels the run function's context.
	Stop() error

	// IsService reports whether the process runs without a terminal, as
	// under systemd.
	IsService() bool
}

// RunFunc is the exporter's main loop.
type RunFunc func(ctx context.Context) error

// SignalService cancels the run function on SIGINT or SIGTERM. A second
// signal while waiting for the run function makes Run return immediately.
type SignalService struct {
	runFunc RunFunc
	signals chan os.Signal
	notify  bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewService creates a service for runFunc.
func NewService(runFunc RunFunc) *SignalService {
	return &SignalService{
		runFunc: runFunc,
		signals: make(chan os.Signal, 2),
		notify:  true,
	}
}

// Run starts runFunc and waits for it or for a shutdown signal.
func (s *SignalService) Run(ctx context.Context) error {
	log := logger.WithComponent("service")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.notify {
		signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(s.signals)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.runFunc(ctx)
	}()

	log.Info().Bool("service_mode", s.IsService()).Msg("Service started")

	select {
	case sig := <-s.signals:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		s.Stop()

		select {
		case err := <-done:
			return err
		case sig := <-s.signals:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
			return nil
		}

	case err := <-done:
		return err
	}
}

// Stop cancels the run function. It is safe to call more than once.
func (s *SignalService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil && !s.stopped {
		s.stopped = true
		s.cancel()
	}
	return nil
}

// IsService reports whether stdin is not a terminal.
func (s *SignalService) IsService() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
