package service

import (
	"github.com/rs/zerolog"

	"postura/api/internal/catalog"
	"postura/api/internal/config"
	"postura/api/internal/facebook"
	"postura/api/internal/security"
)

// Dependencies are the stores and adapters the services are built from.
// Queue may be nil; support mail is then sent inline.
type Dependencies struct {
	Users         UserStore
	Tokens        TokenStore
	InternalUsers InternalUserStore
	Firmware      FirmwareStore
	Tickets       TicketStore
	Blobs         BlobStore
	Queue         TicketQueue
	Mailer        Mailer
	Verifier      facebook.Verifier
	Catalog       *catalog.Catalog
	Factory       *security.TokenFactory
}

type Services struct {
	Auth     *AuthService
	Users    *UserService
	Admin    *AdminService
	Catalog  *CatalogService
	Firmware *FirmwareService
	Support  *SupportService
}

func New(cfg *config.AppConfig, deps Dependencies, log zerolog.Logger) Services {
	var plans PlanResolver
	if deps.Catalog != nil {
		plans = deps.Catalog
	}
	defaultPlans := cfg.Catalog.DefaultTrainingPlans

	return Services{
		Auth:     NewAuthService(deps.Users, deps.Tokens, deps.Factory, deps.Verifier, plans, defaultPlans, log),
		Users:    NewUserService(deps.Users, deps.Tokens, deps.Factory, deps.Mailer, deps.Catalog, defaultPlans, log),
		Admin:    NewAdminService(deps.InternalUsers, deps.Factory, log),
		Catalog:  NewCatalogService(deps.Catalog),
		Firmware: NewFirmwareService(deps.Firmware, deps.Blobs, cfg.Storage.BucketFirmware, cfg.Storage.PresignTTL, deps.Factory, log),
		Support:  NewSupportService(deps.Users, deps.Tickets, deps.Queue, deps.Mailer, deps.Factory, log),
	}
}
