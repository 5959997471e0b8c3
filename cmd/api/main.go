package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/config"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/infra/http/handler"
	internalMiddleware "github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/infra/http/middleware"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/infra/postgres"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/infra/rabbitmq"
	redisInfra "github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/infra/redis"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/provider/conversion"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/provider/custody"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/provider/kyc"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/provider/payout"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/provider/screening"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configuração de Logs (Zerolog - estruturado e rápido)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// O erro é ignorado de propósito, pois em Produção (Docker/K8s)
	// não usamos arquivo .env, usamos variáveis reais do sistema.
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuração inválida")
	}

	dbPool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao banco de dados")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Banco de dados não está respondendo")
	}
	log.Info().Msg("Conectado ao PostgreSQL com sucesso")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Não foi possível conectar ao Redis (Idempotência desabilitada)")
	} else {
		log.Info().Msg("Conectado ao Redis")
	}

	rabbitConn, err := amqp.DialConfig(cfg.RabbitMQ.URL, amqp.Config{
		Properties: amqp.Table{
			"connection_name": "SettlementAPI_Publisher",
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao conectar no RabbitMQ (Eventos não serão enviados)")
	} else {
		defer rabbitConn.Close()
		log.Info().Msg("Conectado ao RabbitMQ")
	}

	var eventPublisher gateway.EventPublisher
	if rabbitConn != nil {
		ch, err := rabbitConn.Channel()
		if err != nil {
			log.Fatal().Err(err).Msg("Falha ao abrir canal RabbitMQ")
		}
		defer ch.Close()

		// Declarar Exchange (Tópico)
		err = ch.ExchangeDeclare(
			usecase.SettlementExchange, // name
			"topic",                    // type
			true,                       // durable
			false,                      // auto-deleted
			false,                      // internal
			false,                      // no-wait
			nil,                        // arguments
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Falha ao declarar Exchange")
		}

		eventPublisher = rabbitmq.NewRabbitMQPublisher(ch)
	}

	// Inicialização da Camada de Infraestrutura (Repositories)
	idempotencyRepo := redisInfra.NewIdempotencyRepository(redisClient)
	transactionRepo := postgres.NewTransactionRepository(dbPool)
	screeningRepo := postgres.NewScreeningRepository(dbPool)
	fxOrderRepo := postgres.NewFXOrderRepository(dbPool)
	payoutRepo := postgres.NewPayoutRepository(dbPool)
	uow := postgres.NewUow(dbPool)

	// Clients dos providers externos: um por processo, injetados
	// explicitamente (nada de lookup global).
	screeningClient := screening.NewClient(cfg.Screening.BaseURL, cfg.Screening.APIKey, cfg.Screening.Timeout)
	conversionBroker := conversion.NewClient(cfg.Conversion.BaseURL, cfg.Conversion.APIKey, cfg.Conversion.Timeout)
	payoutDispatcher := payout.NewClient(cfg.Payout.BaseURL, cfg.Payout.APIKey, cfg.Payout.Timeout, cfg.Payout.AllowSimulated)
	custodyClient := custody.NewClient(cfg.Custody.BaseURL, cfg.Custody.APIKey, cfg.Custody.Timeout)
	kycClient := kyc.NewClient(cfg.KYC.BaseURL, cfg.KYC.APIKey, cfg.KYC.Timeout)

	if cfg.Payout.AllowSimulated {
		log.Warn().Msg("Fallback de payout SIMULADO habilitado — nunca usar em produção")
	}

	severityPolicy := domain.SeverityPolicy{
		ClearMax:  cfg.Risk.ClearMax,
		LowMax:    cfg.Risk.LowMax,
		MediumMax: cfg.Risk.MediumMax,
	}
	retryPolicy := usecase.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}

	// Inicialização da Camada de UseCase (Regras de Negócio)
	settleUseCase := usecase.NewSettleTransaction(
		transactionRepo, screeningRepo, fxOrderRepo, payoutRepo, uow,
		screeningClient, conversionBroker, payoutDispatcher,
		idempotencyRepo, eventPublisher, severityPolicy, retryPolicy,
	)
	registerDepositUseCase := usecase.NewRegisterDeposit(transactionRepo, kycClient, eventPublisher)
	requestPayoutUseCase := usecase.NewRequestPayout(transactionRepo, kycClient, custodyClient, eventPublisher)
	getTransactionUseCase := usecase.NewGetTransaction(transactionRepo)
	holdUseCase := usecase.NewHoldTransaction(transactionRepo)

	// Handlers
	settlementHandler := handler.NewSettlementHandler(registerDepositUseCase, settleUseCase, holdUseCase)
	transactionHandler := handler.NewTransactionHandler(getTransactionUseCase, requestPayoutUseCase)

	// Configuração do Servidor HTTP (Router Chi)
	router := chi.NewRouter()

	// Middlewares básicos
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer) // Evita crash se der panic
	router.Use(middleware.Timeout(60 * time.Second))
	idempotencyMiddleware := internalMiddleware.Idempotency(idempotencyRepo)

	// Decisão de operador: colaborador externo; aqui só honramos o token.
	operatorMiddleware := internalMiddleware.Operator(func(r *http.Request) bool {
		return cfg.OperatorToken != "" && r.Header.Get("X-Operator-Token") == cfg.OperatorToken
	})

	// Rota de Health Check (para o Docker saber se estamos vivos)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Falha ao escrever resposta de health check")
		}
	})

	// Rotas
	router.Group(func(r chi.Router) {
		r.Use(idempotencyMiddleware)
		r.Post("/wallets/deposits", settlementHandler.DepositDetected)
		r.Post("/payouts", transactionHandler.CreatePayoutIntent)
	})
	router.Get("/transactions/{id}", transactionHandler.Get)
	router.Group(func(r chi.Router) {
		r.Use(operatorMiddleware)
		r.Post("/transactions/{id}/advance", settlementHandler.Advance)
		r.Post("/transactions/{id}/hold", settlementHandler.Hold)
		r.Post("/transactions/{id}/release", settlementHandler.Release)
	})

	// Subir o Servidor
	port := ":8080"
	log.Info().Msgf("Servidor rodando na porta %s", port)
	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatal().Err(err).Msg("Falha ao iniciar servidor HTTP")
	}
}
