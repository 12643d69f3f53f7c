package cmd

import (
	"log"
	"time"

	"time-exchange.com/time-exchange/internal/clients"
	config "time-exchange.com/time-exchange/internal/configs"
	httpapi "time-exchange.com/time-exchange/internal/http"
	"time-exchange.com/time-exchange/internal/lifecycle"
	repository "time-exchange.com/time-exchange/internal/repositories"
	"time-exchange.com/time-exchange/internal/services"
)

type app struct {
	stores    repository.Stores
	users     *services.UserService
	transfers *services.TransferService
	engine    *services.TaskService
	remote    *clients.UserServiceClient
}

// newApp wires the engine to its collaborators. With USER_SERVICE_URL set,
// user lookups and settlements go to the remote service; otherwise the local
// store answers both.
func newApp(cfg config.Config, sink services.EventSink) *app {
	stores := config.OpenStores(cfg)
	transfers := services.NewTransferService(stores.Balances)

	var oracle services.UserOracle = services.NewStoreUserOracle(stores.Balances)
	var transferrer services.Transferrer = transfers
	var remote *clients.UserServiceClient
	if cfg.UserServiceURL != "" {
		log.Printf("using remote user service at %s", cfg.UserServiceURL)
		remote = clients.NewUserServiceClient(cfg.UserServiceURL, cfg.ExternalCallTimeout)
		oracle, transferrer = remote, remote
	}

	engine := services.NewTaskService(
		stores.Tasks,
		stores.Settlements,
		oracle,
		transferrer,
		sink,
		services.TaskServiceConfig{
			Policy:      lifecycle.Policy{RequireCreatorForUpdate: cfg.RequireCreatorForUpdate},
			CallTimeout: cfg.ExternalCallTimeout,
		},
	)

	return &app{
		stores:    stores,
		users:     services.NewUserService(stores.Balances),
		transfers: transfers,
		engine:    engine,
		remote:    remote,
	}
}

// healthChecks lists the dependencies /health reports on.
func (a *app) healthChecks() map[string]httpapi.Pinger {
	checks := map[string]httpapi.Pinger{"store": a.stores.Tasks}
	if a.remote != nil {
		checks["user_service"] = a.remote
	}
	return checks
}

func (a *app) reconciler(cfg config.Config) *services.SettlementReconciler {
	return services.NewSettlementReconciler(
		a.engine,
		a.stores.Settlements,
		time.Duration(cfg.ReconcileIntervalSeconds)*time.Second,
		time.Duration(cfg.ReconcileGraceSeconds)*time.Second,
		cfg.ReconcileBatchSize,
	)
}

func (a *app) close() {
	if err := a.stores.Close(); err != nil {
		log.Printf("failed to close store: %v", err)
	}
}
