// internal/svc/service.go
package svc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/dalemusser/mailcheck/app"
	"github.com/kardianos/service"
)

// program lets the platform service manager (systemd, launchd, Windows
// SCM) drive app.Run.
type program struct {
	hooks app.Hooks[*Deps]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	logger service.Logger
}

// Start is called by the service manager; it must not block.
func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if err := app.Run(ctx, p.hooks); err != nil {
			if p.logger != nil {
				_ = p.logger.Error(err)
			}
			os.Exit(1)
		}
	}()
	return nil
}

// Stop triggers a graceful shutdown and waits for it.
func (p *program) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func newService(args []string) (service.Service, *program, error) {
	prg := &program{hooks: Hooks(args)}
	s, err := service.New(prg, &service.Config{
		Name:        Name,
		DisplayName: "Mail Check",
		Description: "Email address validation service (RFC 5321/5322).",
		Arguments:   args,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}
	return s, prg, nil
}

// Run serves in the foreground, or under the service manager when started
// by one.
func Run(args []string) error {
	if service.Interactive() {
		return app.Run(context.Background(), Hooks(args))
	}
	s, prg, err := newService(args)
	if err != nil {
		return err
	}
	if prg.logger, err = s.Logger(nil); err != nil {
		return fmt.Errorf("service logger: %w", err)
	}
	return s.Run()
}

// ErrUnknownAction is returned by Control for actions other than
// service.ControlAction.
var ErrUnknownAction = errors.New("unknown service action")

// Control runs install, uninstall, start, stop or restart. args are the
// configuration flags recorded for install.
func Control(action string, args []string) error {
	if !slices.Contains(service.ControlAction[:], action) {
		return fmt.Errorf("%w %q (want one of %v)", ErrUnknownAction, action, service.ControlAction)
	}
	s, _, err := newService(args)
	if err != nil {
		return err
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	return nil
}
