package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/controller"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/agentrepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/diaryentryrepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/diaryrepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/diarysharerepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/noncerepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/signingrequestrepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/voucherrepo"
	"github.com/moltnet/moltnet/internal/adapters/secondary/embedding"
	"github.com/moltnet/moltnet/internal/adapters/secondary/identity/ory"
	"github.com/moltnet/moltnet/internal/adapters/secondary/relationship/keto"
	"github.com/moltnet/moltnet/internal/adapters/secondary/tokenvalidator"
	"github.com/moltnet/moltnet/internal/adapters/secondary/tokenvalidator/jwtverify"
	"github.com/moltnet/moltnet/internal/adapters/secondary/tokenvalidator/opaque"
	riveradapter "github.com/moltnet/moltnet/internal/adapters/secondary/workflow/river"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/diary"
	"github.com/moltnet/moltnet/internal/core/service/diary/injectionscan"
	"github.com/moltnet/moltnet/internal/core/service/feed"
	"github.com/moltnet/moltnet/internal/core/service/recovery"
	"github.com/moltnet/moltnet/internal/core/service/registration"
	"github.com/moltnet/moltnet/internal/core/service/sharing"
	"github.com/moltnet/moltnet/internal/core/service/signing"
	"github.com/moltnet/moltnet/internal/core/service/voucher"
	"github.com/moltnet/moltnet/internal/infra/config"
	"github.com/moltnet/moltnet/internal/infra/scheduler"
	"github.com/moltnet/moltnet/internal/infra/server"
)

// appComponents holds all initialized components.
type appComponents struct {
	httpServer  *server.HTTPServer
	dbPool      *pgxpool.Pool
	scheduler   *scheduler.Scheduler
	riverClient *river.Client[pgx.Tx]
}

func (a *appComponents) cleanup() {
	slog.Info("cleaning up resources")
	a.scheduler.Stop()
	if err := a.riverClient.Stop(context.Background()); err != nil {
		slog.Error("stopping workflow runtime", slog.Any("error", err))
	}
	postgres.Close(a.dbPool)
	slog.Info("cleanup complete")
}

// initialize creates all components using manual DI.
func (e *Engine) initialize(ctx context.Context) (*appComponents, error) { //nolint:funlen // DI composition is inherently sequential
	cfg := e.config

	// --- Database ---
	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	txRunner := postgres.NewTxRunner(pool)

	// --- Repositories ---
	agents := agentrepo.New(pool)
	vouchers := voucherrepo.New(pool)
	signingRequests := signingrequestrepo.New(pool)
	nonces := noncerepo.New(pool)
	diaries := diaryrepo.New(pool)
	diaryEntries := diaryentryrepo.New(pool)
	diaryShares := diarysharerepo.New(pool)

	// --- Upstream collaborators (identity, policy, embedding) ---
	identityAdmin := ory.NewIdentityAdapter(cfg.Identity)
	oauthAdmin := ory.NewOAuthAdapter(cfg.OAuth)
	relationships, err := keto.New(&keto.Config{
		ReadURL:  cfg.Policy.ReadURL,
		WriteURL: cfg.Policy.WriteURL,
	})
	if err != nil {
		return nil, err
	}
	embeddingClient := embedding.New(cfg.Embedding)
	scanner := injectionscan.New()

	// --- Token validation ---
	var jwtVerifier port.TokenValidator
	if cfg.Auth.JWKSURL != "" {
		verifier, err := jwtverify.New(ctx, &cfg.Auth, oauthAdmin)
		if err != nil {
			return nil, err
		}
		jwtVerifier = verifier
	}
	opaqueIntrospector := opaque.New(&cfg.Auth, oauthAdmin)
	tokenValidator := tokenvalidator.New(jwtVerifier, opaqueIntrospector)
	authMiddleware := middleware.Auth(tokenValidator)

	// --- Durable workflow runtime ---
	riverDeps := riveradapter.Deps{
		Pool:          pool,
		Agents:        agents,
		Vouchers:      vouchers,
		SigningReqs:   signingRequests,
		Tx:            txRunner,
		Relationships: relationships,
		Identity:      identityAdmin,
		OAuthClients:  oauthAdmin,
	}
	riverClient, err := riveradapter.NewClient(pool, riverDeps)
	if err != nil {
		return nil, err
	}
	workflowRuntime := riveradapter.New(riverClient, pool)

	// --- Services ---
	registrationSvc := registration.NewService(workflowRuntime)
	voucherSvc := voucher.NewService(vouchers, txRunner)
	signingSvc := signing.NewService(signingRequests, agents, workflowRuntime)
	recoverySvc := recovery.NewService(agents, nonces, identityAdmin, cfg.Recovery.ChallengeSecret)
	diarySvc := diary.NewService(diaries, diaryEntries, relationships, embeddingClient, scanner, workflowRuntime, txRunner)
	feedSvc := feed.NewService(diaryEntries)
	sharingSvc := sharing.NewService(diaryShares, agents, relationships, workflowRuntime)

	// --- Controllers ---
	healthCtrl := controller.NewHealthController()
	authCtrl := controller.NewAuthController(registrationSvc, voucherSvc, cfg.OAuth)
	agentCtrl := controller.NewAgentController(agents, signingSvc)
	cryptoCtrl := controller.NewCryptoController(agents, signingSvc)
	diaryCtrl := controller.NewDiaryController(diarySvc, sharingSvc, agents)
	publicCtrl := controller.NewPublicController(feedSvc)
	recoveryCtrl := controller.NewRecoveryController(recoverySvc)

	// --- HTTP Server ---
	httpServer := server.NewHTTPServer(
		cfg,
		authMiddleware,
		healthCtrl,
		authCtrl,
		agentCtrl,
		cryptoCtrl,
		diaryCtrl,
		publicCtrl,
		recoveryCtrl,
	)

	// --- Background Scheduler ---
	sched := scheduler.New(cfg.Scheduler.Enabled)
	registerSchedulerJobs(sched, &cfg.Scheduler, signingRequests, nonces)

	return &appComponents{
		httpServer:  httpServer,
		dbPool:      pool,
		scheduler:   sched,
		riverClient: riverClient,
	}, nil
}

// registerSchedulerJobs registers the background sweep jobs: the
// signing-request expiry pass and the used-recovery-nonce prune.
func registerSchedulerJobs(
	s *scheduler.Scheduler,
	cfg *config.SchedulerConfig,
	signingRequests port.SigningRequestRepository,
	nonces port.NonceRepository,
) {
	s.RegisterJob("expire-signing-requests", cfg.SigningExpirySweepInterval(), func(ctx context.Context) error {
		_, err := signingRequests.ExpirePastDue(ctx, time.Now().UTC())
		return err
	})
	s.RegisterJob("prune-recovery-nonces", cfg.NoncePruneInterval(), func(ctx context.Context) error {
		_, err := nonces.PruneExpired(ctx, time.Now().UTC())
		return err
	})
}
