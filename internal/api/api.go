package api

import (
	"errors"
	"github.com/skybi/assetdesk/internal/api/portal"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/config"
	"github.com/skybi/assetdesk/internal/storage"
	"net/http"
)

// Service represents the service hosting the portal
type Service struct {
	Config         *config.Config
	Storage        storage.Driver
	SessionStorage session.Storage
	portal         *portal.Service
}

// Startup starts up the portal
func (service *Service) Startup(errs chan<- error) {
	portalService := &portal.Service{
		Config:         service.Config,
		Storage:        service.Storage,
		SessionStorage: service.SessionStorage,
	}
	service.portal = portalService
	go func() {
		if err := portalService.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the portal
func (service *Service) Shutdown() {
	if service.portal != nil {
		service.portal.Shutdown()
		service.portal = nil
	}
}
