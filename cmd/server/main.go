package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"keygate/internal/binding"
	"keygate/internal/eligibility"
	eligibilityhandler "keygate/internal/eligibility/handler"
	eligibilitymetrics "keygate/internal/eligibility/metrics"
	"keygate/internal/hooks"
	hookshandler "keygate/internal/hooks/handler"
	hookmetrics "keygate/internal/hooks/metrics"
	jwttoken "keygate/internal/jwt_token"
	mechsvc "keygate/internal/mechanism/service"
	memorystore "keygate/internal/mechanism/store/memory"
	postgresstore "keygate/internal/mechanism/store/postgres"
	redisstore "keygate/internal/mechanism/store/redis"
	"keygate/internal/platform/config"
	"keygate/internal/platform/httpserver"
	"keygate/internal/platform/logger"
	platformredis "keygate/internal/platform/redis"
	regmemory "keygate/internal/registry/memory"
	httptransport "keygate/internal/transport/http"
	id "keygate/pkg/domain"
	auditpublisher "keygate/pkg/platform/audit/publisher"
	kafkapublisher "keygate/pkg/platform/audit/publishers/kafka"
	auditmemory "keygate/pkg/platform/audit/store/memory"
)

// main wires dependencies, initializes the binding, and runs the HTTP
// server. Business logic lives in the internal services.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.ParseLevel(os.Getenv("KEYGATE_LOG_LEVEL")))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Key store backend for the subscription ledger.
	var closers []func() error
	stores, err := buildStoreProvider(cfg, &closers)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	// Audit trail: Kafka when brokers are configured, in-process otherwise.
	var auditor hooks.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := kafkapublisher.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("kafka audit publisher: %w", err)
		}
		defer kp.Close()
		auditor = kp
	} else {
		mp := auditpublisher.NewPublisher(auditmemory.NewInMemoryStore(), auditpublisher.WithAsyncBuffer(256))
		defer mp.Close()
		auditor = mp
	}

	// The in-process factory is published at the address the binding
	// resolves for this network.
	factory := mechsvc.NewFactory(stores, log)
	provider := mechsvc.NewProvider()
	factoryAddr, err := serveFactoryAddress(cfg)
	if err != nil {
		return err
	}
	provider.Register(factoryAddr, factory)

	policyID := id.PolicyID(cfg.PolicyID)
	registry := regmemory.New()

	identity, err := randomAddress()
	if err != nil {
		return fmt.Errorf("derive binding identity: %w", err)
	}
	registry.AddPolicyAdmin(policyID, identity)

	shared, err := buildDeploymentConfig(cfg)
	if err != nil {
		return err
	}

	b, err := binding.New(identity, registry, policyID, id.ChainID(cfg.ChainID), shared, provider,
		binding.WithLogger(log),
		binding.WithHookMetrics(hookmetrics.New()),
		binding.WithAuditPublisher(auditor),
	)
	if err != nil {
		return fmt.Errorf("construct binding: %w", err)
	}

	subCfg, err := buildSubscriptionConfig(cfg)
	if err != nil {
		return err
	}
	if err := b.Initialize(ctx, subCfg); err != nil {
		return fmt.Errorf("initialize binding: %w", err)
	}

	oracle, err := eligibility.New(b.Mechanism(), registry, policyID,
		eligibility.WithLogger(log),
		eligibility.WithMetrics(eligibilitymetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("construct eligibility oracle: %w", err)
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "keygate", "keygate")

	router := httptransport.NewRouter(httptransport.Deps{
		Eligibility:    eligibilityhandler.New(oracle, log),
		Hooks:          hookshandler.New(b.Hooks(), log),
		TokenValidator: tokens,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting keygate",
			"addr", cfg.Addr,
			"chain_id", cfg.ChainID,
			"policy_id", cfg.PolicyID,
			"storage", cfg.Storage,
			"transfer_policy", cfg.TransferPolicy,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("keygate stopped")
	return nil
}

func buildStoreProvider(cfg config.Config, closers *[]func() error) (mechsvc.StoreProvider, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return func(string) (mechsvc.Store, error) {
			return memorystore.New(), nil
		}, nil

	case config.StorageRedis:
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		if client == nil {
			return nil, errors.New("KEYGATE_REDIS_URL is required for redis storage")
		}
		*closers = append(*closers, client.Close)
		return func(name string) (mechsvc.Store, error) {
			return redisstore.New(client.Client, name), nil
		}, nil

	case config.StoragePostgres:
		if cfg.Postgres.URL == "" {
			return nil, errors.New("KEYGATE_POSTGRES_URL is required for postgres storage")
		}
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if _, err := db.Exec(postgresstore.Schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply postgres schema: %w", err)
		}
		*closers = append(*closers, db.Close)
		return func(name string) (mechsvc.Store, error) {
			return postgresstore.New(db, name), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}

// serveFactoryAddress picks where the in-process factory is published: the
// override when configured, else this network's published address.
func serveFactoryAddress(cfg config.Config) (id.Address, error) {
	if cfg.FactoryOverride != "" {
		addr, err := id.ParseAddress(cfg.FactoryOverride)
		if err != nil {
			return id.ZeroAddress, fmt.Errorf("KEYGATE_FACTORY_OVERRIDE: %w", err)
		}
		return addr, nil
	}
	addr, ok := binding.FactoryAddress(id.ChainID(cfg.ChainID))
	if !ok {
		return id.ZeroAddress, fmt.Errorf("no factory known for chain %d; set KEYGATE_FACTORY_OVERRIDE", cfg.ChainID)
	}
	return addr, nil
}

func buildDeploymentConfig(cfg config.Config) (*binding.DeploymentConfig, error) {
	policy, err := hooks.ParseTransferPolicy(cfg.TransferPolicy)
	if err != nil {
		return nil, err
	}

	var referrer id.Address
	if cfg.Referrer != "" {
		if referrer, err = id.ParseAddress(cfg.Referrer); err != nil {
			return nil, fmt.Errorf("KEYGATE_REFERRER: %w", err)
		}
	}

	fee, err := id.ParseBasisPoints(uint64(cfg.ReferrerFeeBasisPoints))
	if err != nil {
		return nil, err
	}

	shared := binding.NewDeploymentConfig(referrer, fee, policy)
	if cfg.FactoryOverride != "" {
		if shared.FactoryOverride, err = id.ParseAddress(cfg.FactoryOverride); err != nil {
			return nil, fmt.Errorf("KEYGATE_FACTORY_OVERRIDE: %w", err)
		}
	}
	return shared, nil
}

func buildSubscriptionConfig(cfg config.Config) (binding.SubscriptionConfig, error) {
	var asset id.Address
	var err error
	if cfg.Asset != "" {
		if asset, err = id.ParseAddress(cfg.Asset); err != nil {
			return binding.SubscriptionConfig{}, fmt.Errorf("KEYGATE_ASSET: %w", err)
		}
	}

	// Initialization hands ledger management over and renounces the
	// binding's own position, so a distinct manager is mandatory.
	if cfg.Manager == "" {
		return binding.SubscriptionConfig{}, errors.New("KEYGATE_MANAGER is required")
	}
	manager, err := id.ParseAddress(cfg.Manager)
	if err != nil {
		return binding.SubscriptionConfig{}, fmt.Errorf("KEYGATE_MANAGER: %w", err)
	}

	return binding.SubscriptionConfig{
		ExpirationDuration: cfg.ExpirationDuration,
		Asset:              asset,
		UnitPrice:          id.Amount(cfg.UnitPrice),
		SupplyCap:          cfg.SupplyCap,
		Manager:            manager,
		DisplayName:        cfg.DisplayName,
		MechanismVersion:   cfg.MechanismVersion,
	}, nil
}

func randomAddress() (id.Address, error) {
	var a id.Address
	if _, err := rand.Read(a[:]); err != nil {
		return id.ZeroAddress, err
	}
	return a, nil
}
