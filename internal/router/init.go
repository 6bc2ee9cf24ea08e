package router

import (
	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/container"
	"github.com/mpetrenko/contacts-api/internal/infrastructure/postgres"
	"github.com/mpetrenko/contacts-api/internal/infrastructure/rediscache"
	handlers "github.com/mpetrenko/contacts-api/internal/interface/http"
	"github.com/mpetrenko/contacts-api/internal/router/modules"
	"github.com/mpetrenko/contacts-api/pkg/mailer"
)

// InitModules builds the services from container singletons and registers
// all feature modules. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	userRepo := postgres.NewUserRepository(container.GetPGPool())
	contactRepo := postgres.NewContactRepository(container.GetPGPool())

	cache := rediscache.NewSessionCache(container.GetRedis(), cfg.SessionCacheTTL, logger)
	tickets := rediscache.NewResetTicketStore(container.GetRedis(), cfg.ResetTicketTTL)

	var notifier application.Notifier
	if pub := container.GetRabbitPub(); pub != nil {
		notifier = mailer.NewQueueNotifier(pub)
	}

	authSvc := application.NewAuthService(
		userRepo,
		container.GetCodec(),
		cache,
		tickets,
		notifier,
		container.GetGCS(),
		cfg.GCSBucket,
		logger,
		cfg.BaseURL,
		cfg.ResetPasswordURL,
	)
	contactSvc := application.NewContactService(contactRepo, logger, container.GetES(), cfg.ESContactsIndex)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, logger), authSvc))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(authSvc, logger), authSvc))
	r.Add(modules.NewContactModule(handlers.NewContactHandler(contactSvc, logger), authSvc))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
