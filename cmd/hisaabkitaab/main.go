package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/account"
	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/auth"
	"github.com/hisaabkitaab/hisaabkitaab/internal/calls"
	"github.com/hisaabkitaab/hisaabkitaab/internal/config"
	database "github.com/hisaabkitaab/hisaabkitaab/internal/db"
	emailService "github.com/hisaabkitaab/hisaabkitaab/internal/email"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/infrastructure"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/interfaces"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"github.com/hisaabkitaab/hisaabkitaab/internal/storage"
	"github.com/hisaabkitaab/hisaabkitaab/internal/telephony"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	router *http.ServeMux
	log    zerolog.Logger
	db     *database.DBService

	authn     *auth.Middleware
	webhooks  *auth.WebhookHandler
	profiles  *profile.Handler
	accounts  *account.Handler
	calls     *calls.Handler
	finance   financeHandlers
	allowCORS string
}

type financeHandlers struct {
	transactions *interfaces.TransactionHandler
	categories   *interfaces.CategoryHandler
	summaries    *interfaces.SummaryHandler
	export       *interfaces.ExportHandler
	ingestion    *interfaces.IngestionHandler
	advisor      *interfaces.AdvisorHandler
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	middleware.RespondError(w, http.StatusNotFound, "Path not found")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health["status"] != "up" {
		middleware.RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "database": health})
		return
	}
	middleware.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) protect(h http.HandlerFunc, uuidParams ...string) http.Handler {
	var handler http.Handler = h
	if len(uuidParams) > 0 {
		handler = middleware.ValidateUUIDPathParams(middleware.RespondError, uuidParams...)(handler)
	}
	return s.authn.RequireSession(handler)
}

func (s *Server) RegisterRoutes() {
	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	publicRoutes.Handle("POST /api/webhooks/identity", http.HandlerFunc(s.webhooks.HandleIdentityEvent))
	callIDParam := middleware.ValidateUUIDPathParams(middleware.RespondError, "callID")
	publicRoutes.Handle("POST /api/telephony/twiml/{callID}", callIDParam(http.HandlerFunc(s.calls.HandleTwiML)))
	publicRoutes.Handle("POST /api/telephony/status/{callID}", callIDParam(http.HandlerFunc(s.calls.HandleStatus)))
	publicRoutes.Handle("POST /api/cron/calls", http.HandlerFunc(s.calls.HandleCron))

	// Protected routes (identity provider session)
	protectedRoutes := http.NewServeMux()

	protectedRoutes.Handle("GET /api/protected/profile", s.protect(s.profiles.HandleGetProfile))
	protectedRoutes.Handle("PUT /api/protected/profile", s.protect(s.profiles.HandleUpdateProfile))
	protectedRoutes.Handle("DELETE /api/protected/profile", s.protect(s.profiles.HandleDeleteProfile))
	protectedRoutes.Handle("POST /api/protected/profile/phone/verify-request", s.protect(s.profiles.HandleRequestPhoneVerification))
	protectedRoutes.Handle("POST /api/protected/profile/phone/verify-confirm", s.protect(s.profiles.HandleConfirmPhoneVerification))

	// ACCOUNT API
	protectedRoutes.Handle("GET /api/protected/account", s.protect(s.accounts.HandleGetAccount))
	protectedRoutes.Handle("PUT /api/protected/account", s.protect(s.accounts.HandleUpdateAccount))
	protectedRoutes.Handle("GET /api/protected/account/members", s.protect(s.accounts.HandleListMembers))
	protectedRoutes.Handle("POST /api/protected/account/members/invite", s.protect(s.accounts.HandleInviteMember))
	protectedRoutes.Handle("PUT /api/protected/account/members/{memberID}", s.protect(s.accounts.HandleChangeRole, "memberID"))
	protectedRoutes.Handle("DELETE /api/protected/account/members/{memberID}", s.protect(s.accounts.HandleRemoveMember, "memberID"))
	protectedRoutes.Handle("GET /api/protected/invitations", s.protect(s.accounts.HandleListInvitations))
	protectedRoutes.Handle("POST /api/protected/invitations/{memberID}/accept", s.protect(s.accounts.HandleAcceptInvitation, "memberID"))
	protectedRoutes.Handle("POST /api/protected/invitations/{memberID}/decline", s.protect(s.accounts.HandleDeclineInvitation, "memberID"))

	// TRANSACTION API
	protectedRoutes.Handle("GET /api/protected/transactions", s.protect(s.finance.transactions.ListTransactions))
	protectedRoutes.Handle("POST /api/protected/transactions", s.protect(s.finance.transactions.CreateTransaction))
	protectedRoutes.Handle("GET /api/protected/transactions/{transactionID}", s.protect(s.finance.transactions.GetTransaction, "transactionID"))
	protectedRoutes.Handle("PUT /api/protected/transactions/{transactionID}", s.protect(s.finance.transactions.UpdateTransaction, "transactionID"))
	protectedRoutes.Handle("DELETE /api/protected/transactions/{transactionID}", s.protect(s.finance.transactions.DeleteTransaction, "transactionID"))
	protectedRoutes.Handle("POST /api/protected/transactions/voice", s.protect(s.finance.ingestion.CreateFromVoice))
	protectedRoutes.Handle("POST /api/protected/transactions/bill", s.protect(s.finance.ingestion.CreateFromBill))

	protectedRoutes.Handle("GET /api/protected/categories", s.protect(s.finance.categories.GetCategories))
	protectedRoutes.Handle("POST /api/protected/categories", s.protect(s.finance.categories.CreateCategory))

	// SUMMARY API
	protectedRoutes.Handle("GET /api/protected/summary/monthly", s.protect(s.finance.summaries.GetMonthlySummary))
	protectedRoutes.Handle("GET /api/protected/summary/categories", s.protect(s.finance.summaries.GetCategorySummary))
	protectedRoutes.Handle("GET /api/protected/summary/members", s.protect(s.finance.summaries.GetMemberSummary))
	protectedRoutes.Handle("GET /api/protected/summary/overview", s.protect(s.finance.summaries.GetOverview))
	protectedRoutes.Handle("GET /api/protected/export", s.protect(s.finance.export.Export))

	protectedRoutes.Handle("POST /api/protected/advisor/chat", s.protect(s.finance.advisor.Chat))

	// CALLS API
	protectedRoutes.Handle("GET /api/protected/calls", s.protect(s.calls.HandleListCalls))
	protectedRoutes.Handle("POST /api/protected/calls", s.protect(s.calls.HandleScheduleCall))
	protectedRoutes.Handle("DELETE /api/protected/calls/{callID}", s.protect(s.calls.HandleCancelCall, "callID"))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.router,
		middleware.RequestID,
		middleware.Logger(s.log),
		middleware.Recovery(s.log),
		middleware.CORS(s.allowCORS),
	)
}

func main() {
	log := logger.New("info")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Missing configuration, update to start server")
	}
	log = logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbService, err := database.NewDBService(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not initialize database")
	}
	defer dbService.Close()
	if err := dbService.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not apply database schema")
	}

	var mailer emailService.EmailSender = emailService.LogSender{Log: log}
	if cfg.EmailEnabled() {
		smtpMailer := emailService.NewEmailService(emailService.Config{
			From:         cfg.EmailAddress,
			Password:     cfg.EmailPassword,
			SMTPHost:     cfg.SMTPHost,
			SMTPPort:     cfg.SMTPPort,
			TemplatesDir: cfg.TemplatesDir,
		}, log)
		defer smtpMailer.Close()
		mailer = smtpMailer
	}

	// Optional integrations stay nil interfaces when unconfigured so the
	// services can tell them apart from a live client.
	var (
		gateway   *ai.Gateway
		scripts   calls.ScriptWriter
		archive   application.BillArchiver
		phone     *telephony.Client
		callPhone calls.Telephony
		voice     profile.VoiceNotifier
	)
	if cfg.GeminiAPIKey != "" {
		if gateway, err = ai.NewGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err != nil {
			log.Fatal().Err(err).Msg("Could not create AI gateway")
		}
		scripts = gateway
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, AI features disabled")
	}
	if cfg.BillBucket != "" {
		bills, err := storage.NewBillArchive(ctx, cfg.BillBucket, cfg.BillCredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create bill archive")
		}
		defer bills.Close()
		archive = bills
	}
	if cfg.TelephonyEnabled() {
		phone = telephony.NewClient(telephony.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		})
		callPhone, voice = phone, phone
	} else {
		log.Warn().Msg("Twilio not configured, phone features disabled")
	}

	// accounts and profiles
	accountService := account.NewAccountService(account.NewAccountRepository(dbService.DB), mailer, cfg.AppURL)
	profileService := profile.NewProfileService(profile.NewProfileRepository(dbService.DB), accountService, voice)

	verifier, err := auth.NewJWTVerifier(cfg.IdentityJWTKey, cfg.IdentityJWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create session verifier")
	}
	webhooks, err := auth.NewWebhookHandler(cfg.IdentityWebhookSecret, profileService, middleware.RespondJSON, middleware.RespondError)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create identity webhook handler")
	}

	// finance
	categoryService := application.NewCategoryService(infrastructure.NewCategoryRepository(dbService.DB))
	transactionRepo := infrastructure.NewTransactionRepository(dbService.DB)
	transactionService := application.NewTransactionService(transactionRepo, categoryService)
	summaryService := application.NewSummaryService(transactionRepo)
	ingestionService := application.NewIngestionService(transactionService, categoryService, gateway, archive)

	tools := func(p session.Principal) ai.Tools {
		return application.NewAdvisorTools(transactionService, summaryService, categoryService, p)
	}
	currency := func(ctx context.Context, accountID string) string {
		a, err := accountService.GetAccount(ctx, accountID)
		if err != nil {
			return ""
		}
		return a.Currency
	}

	// calls
	callService := calls.NewCallService(calls.NewCallRepository(dbService.DB), calls.Deps{
		Profiles:      profileService,
		Accounts:      accountService,
		Summaries:     summaryService,
		Scripts:       scripts,
		Telephony:     callPhone,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	server := &Server{
		log:       log,
		db:        dbService,
		authn:     auth.NewMiddleware(verifier, profileService, accountService, middleware.RespondError),
		webhooks:  webhooks,
		profiles:  profile.NewHandler(profileService, middleware.RespondJSON, middleware.RespondError),
		accounts:  account.NewHandler(accountService, middleware.RespondJSON, middleware.RespondError),
		calls:     calls.NewHandler(callService, callPhone, cfg.PublicBaseURL, cfg.CronSecret, middleware.RespondJSON, middleware.RespondError),
		allowCORS: cfg.AppURL,
		finance: financeHandlers{
			transactions: interfaces.NewTransactionHandler(transactionService, middleware.RespondJSON, middleware.RespondError),
			categories:   interfaces.NewCategoryHandler(categoryService, middleware.RespondJSON, middleware.RespondError),
			summaries:    interfaces.NewSummaryHandler(summaryService, middleware.RespondJSON, middleware.RespondError),
			export:       interfaces.NewExportHandler(application.NewExportService(transactionRepo), middleware.RespondError),
			ingestion:    interfaces.NewIngestionHandler(ingestionService, middleware.RespondJSON, middleware.RespondError),
			advisor:      interfaces.NewAdvisorHandler(ai.NewAdvisor(gateway), tools, currency, middleware.RespondJSON, middleware.RespondError),
		},
	}
	server.RegisterRoutes()

	if callPhone != nil {
		scheduler, err := calls.StartScheduler(callService, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Scheduler didn't start, stopping the app")
		}
		defer scheduler.Stop()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
