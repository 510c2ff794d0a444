package app

import (
	"context"
	"fmt"

	"github.com/R3E-Network/app_registry/internal/app/audit"
	"github.com/R3E-Network/app_registry/internal/app/services/applications"
	"github.com/R3E-Network/app_registry/internal/app/storage"
	"github.com/R3E-Network/app_registry/internal/app/storage/memory"
	"github.com/R3E-Network/app_registry/internal/app/system"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

// Options configures the application. A nil Store defaults to an empty
// in-memory collection.
type Options struct {
	Store         storage.CollectionStore
	AuditSchedule string
}

// Application ties the record store to its background services and manages
// their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger
	store   storage.CollectionStore

	Apps  *applications.Service
	Audit *audit.Service
}

// New builds a fully initialised application.
func New(opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	store := opts.Store
	if store == nil {
		store = memory.NewWithApps(nil)
	}

	appsService := applications.New(store, log)
	auditService, err := audit.New(appsService, opts.AuditSchedule, log)
	if err != nil {
		return nil, err
	}

	manager := system.NewManager()
	if err := manager.Register(auditService); err != nil {
		return nil, fmt.Errorf("register %s: %w", auditService.Name(), err)
	}

	return &Application{
		manager: manager,
		log:     log,
		store:   store,
		Apps:    appsService,
		Audit:   auditService,
	}, nil
}

// Store returns the backend the record store runs on.
func (a *Application) Store() storage.CollectionStore { return a.store }

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
