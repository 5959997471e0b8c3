package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Nome da exchange e routing keys dos eventos de liquidação.
const (
	SettlementExchange     = "settlement_events"
	RoutingKeyTransitioned = "settlement.transitioned"
	RoutingKeyAlert        = "settlement.alert"
)

// Nomes dos passos, gravados em FailedStep para replay do operador.
const (
	StepScreening  = "screening"
	StepConversion = "conversion"
	StepPayout     = "payout"
)

// payoutReserveTTL limita a janela da reserva de despacho no Redis.
// Curto de propósito: um processo que morreu no meio não pode travar
// o payout para sempre.
const payoutReserveTTL = 10 * time.Minute

// RetryPolicy limita o loop de retry de falhas transientes.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// TransitionEvent é publicado a cada transição comitada.
type TransitionEvent struct {
	TransactionID string  `json:"transaction_id"`
	Reference     string  `json:"reference"`
	FromStatus    string  `json:"from_status"`
	ToStatus      string  `json:"to_status"`
	Step          string  `json:"step,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// AlertEvent é publicado quando um screening cruza o limiar de severidade.
type AlertEvent struct {
	TransactionID string `json:"transaction_id"`
	ScreeningID   string `json:"screening_id"`
	Severity      string `json:"severity"`
	Description   string `json:"description"`
}

// SettleOutput é o resultado de uma passada do orquestrador.
type SettleOutput struct {
	TransactionID string
	Status        domain.Status
	ClientStatus  domain.ClientStatus
}

// SettleTransactionUseCase é o orquestrador de liquidação: dado o id de uma
// transação, avança screening -> conversão -> payout, persistindo cada
// transição antes da próxima chamada externa. Reentrar com o mesmo id é
// sempre seguro: o orquestrador é função do estado persistido, nunca de
// progresso guardado em memória.
type SettleTransactionUseCase struct {
	transactionRepo gateway.TransactionRepository
	screeningRepo   gateway.ScreeningRepository
	fxOrderRepo     gateway.FXOrderRepository
	payoutRepo      gateway.PayoutRepository
	uow             gateway.TransactionManager
	screeningClient gateway.ScreeningClient
	broker          gateway.ConversionBroker
	dispatcher      gateway.PayoutDispatcher
	idempotencyRepo gateway.IdempotencyRepository
	eventPublisher  gateway.EventPublisher

	severityPolicy domain.SeverityPolicy
	retry          RetryPolicy

	// Relógio e sleep injetáveis para os testes não dependerem de tempo real.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSettleTransaction(
	transactionRepo gateway.TransactionRepository,
	screeningRepo gateway.ScreeningRepository,
	fxOrderRepo gateway.FXOrderRepository,
	payoutRepo gateway.PayoutRepository,
	uow gateway.TransactionManager,
	screeningClient gateway.ScreeningClient,
	broker gateway.ConversionBroker,
	dispatcher gateway.PayoutDispatcher,
	idempotencyRepo gateway.IdempotencyRepository,
	publisher gateway.EventPublisher,
	severityPolicy domain.SeverityPolicy,
	retry RetryPolicy,
) *SettleTransactionUseCase {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 200 * time.Millisecond
	}
	return &SettleTransactionUseCase{
		transactionRepo: transactionRepo,
		screeningRepo:   screeningRepo,
		fxOrderRepo:     fxOrderRepo,
		payoutRepo:      payoutRepo,
		uow:             uow,
		screeningClient: screeningClient,
		broker:          broker,
		dispatcher:      dispatcher,
		idempotencyRepo: idempotencyRepo,
		eventPublisher:  publisher,
		severityPolicy:  severityPolicy,
		retry:           retry,
		now:             time.Now,
		sleep:           sleepWithContext,
	}
}

// WithClock troca o relógio e o sleep (uso em testes).
func (u *SettleTransactionUseCase) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *SettleTransactionUseCase {
	u.now = now
	u.sleep = sleep
	return u
}

// Execute roda o pipeline até o próximo ponto de parada: estado terminal,
// screening pendente, ou erro. Invocar de novo numa transação já terminada
// é no-op — nenhum efeito duplicado.
func (u *SettleTransactionUseCase) Execute(ctx context.Context, transactionID string) (*SettleOutput, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required: %w", domain.ErrValidation)
	}

	for {
		res, err := u.step(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		u.publishEvents(ctx, res.events)
		if !res.advanced {
			return &SettleOutput{
				TransactionID: transactionID,
				Status:        res.status,
				ClientStatus:  res.status.Coarse(),
			}, nil
		}
	}
}

type pendingEvent struct {
	routingKey string
	payload    interface{}
}

type stepResult struct {
	advanced bool
	status   domain.Status
	events   []pendingEvent
}

// step executa exatamente um estado do grafo. Cada passo que fala com um
// provider comita a transição de entrada ANTES da chamada externa, para um
// restart retomar do último estado comitado e nunca re-executar passo completo.
func (u *SettleTransactionUseCase) step(ctx context.Context, transactionID string) (stepResult, error) {
	tx, err := u.loadLocked(ctx, transactionID)
	if err != nil {
		return stepResult{}, err
	}

	switch tx.Status {
	case domain.StatusDepositReceived:
		return u.enterScreening(ctx, transactionID)
	case domain.StatusScreeningInProgress:
		return u.runScreening(ctx, tx)
	case domain.StatusScreeningCleared:
		return u.enterConversion(ctx, transactionID)
	case domain.StatusConversionRequested:
		return u.runConversion(ctx, tx)
	case domain.StatusSwapCompleted:
		return u.enterPayout(ctx, tx)
	case domain.StatusPayoutRequested:
		return u.runPayout(ctx, tx)
	default:
		// Terminais e estados de espera (PENDING, DEPOSIT_REQUESTED):
		// nada a fazer automaticamente.
		return stepResult{advanced: false, status: tx.Status}, nil
	}
}

// loadLocked lê a transação fora de UoW só para decidir o dispatch.
// A checagem que vale é sempre refeita sob lock dentro de cada passo.
func (u *SettleTransactionUseCase) loadLocked(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	tx, err := u.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Held {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, domain.ErrTransactionHeld)
	}
	return tx, nil
}

// transition roda uma transição sob UoW + advisory lock, revalidando o
// estado corrente. Se outro processo já avançou, devolve advanced=false
// sem erro — a reentrada concorrente é benigna.
func (u *SettleTransactionUseCase) transition(
	ctx context.Context,
	transactionID string,
	expected domain.Status,
	next domain.Status,
	step string,
	mutate func(ctx context.Context, txObj gateway.TransactionObject, tx *domain.Transaction) error,
) (stepResult, error) {
	var result stepResult

	err := u.uow.Run(ctx, func(ctxTx context.Context) error {
		txObj := ctxTx.Value(gateway.TransactionKey)
		if txObj == nil {
			return fmt.Errorf("transaction object missing from context")
		}
		repo := u.transactionRepo.WithTx(txObj)

		if err := repo.AcquireSettlementLock(ctxTx, transactionID); err != nil {
			return fmt.Errorf("failed to acquire settlement lock: %w", err)
		}

		tx, err := repo.GetByIDForUpdate(ctxTx, transactionID)
		if err != nil {
			return err
		}
		if tx.Held {
			return fmt.Errorf("transaction %s: %w", transactionID, domain.ErrTransactionHeld)
		}
		if tx.Status != expected {
			// Outra invocação chegou primeiro. Não é erro: o estado
			// persistido é a única fonte de verdade de progresso.
			result = stepResult{advanced: false, status: tx.Status}
			return nil
		}

		if mutate != nil {
			if err := mutate(ctxTx, txObj, tx); err != nil {
				return err
			}
		}

		from := tx.Status
		if err := tx.AdvanceTo(next, u.now()); err != nil {
			return err
		}
		if err := repo.Save(ctxTx, tx); err != nil {
			return fmt.Errorf("failed to persist transition to %s: %w", next, err)
		}

		result = stepResult{
			advanced: true,
			status:   next,
			events: []pendingEvent{{
				routingKey: RoutingKeyTransitioned,
				payload: TransitionEvent{
					TransactionID: tx.ID,
					Reference:     tx.Reference,
					FromStatus:    string(from),
					ToStatus:      string(next),
					Step:          step,
					Amount:        tx.Amount,
					Currency:      tx.Currency,
				},
			}},
		}
		return nil
	})
	if err != nil {
		return stepResult{}, err
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Screening
// ---------------------------------------------------------------------------

func (u *SettleTransactionUseCase) enterScreening(ctx context.Context, transactionID string) (stepResult, error) {
	return u.transition(ctx, transactionID, domain.StatusDepositReceived, domain.StatusScreeningInProgress, StepScreening, nil)
}

func (u *SettleTransactionUseCase) runScreening(ctx context.Context, tx *domain.Transaction) (stepResult, error) {
	address, network := tx.ScreeningTarget()
	if address == "" || network == "" {
		return stepResult{}, u.failStep(ctx, tx.ID, StepScreening,
			fmt.Errorf("transaction has no screenable address: %w", domain.ErrValidation))
	}

	// Re-checar screening é idempotente: retry com backoff é permitido aqui.
	var result *gateway.ScreeningResult
	err := u.withRetry(ctx, StepScreening, func() error {
		r, err := u.screeningClient.Screen(ctx, address, network, "high")
		if err == nil {
			result = r
		}
		return err
	})
	if err != nil {
		// Fail-closed: estado fica em SCREENING_IN_PROGRESS, nada avança.
		return stepResult{}, fmt.Errorf("screening step halted: %w", err)
	}

	record := &domain.AMLScreening{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		Address:       address,
		Network:       network,
		RiskScore:     result.RiskScore,
		Signals:       result.Signals,
		Blacklisted:   result.Blacklisted,
		ProviderRef:   result.ProviderRef,
		CheckType:     domain.CheckTypePreTransaction,
		Pending:       !result.Complete,
		CreatedAt:     u.now(),
	}

	if !result.Complete {
		// Provider ainda processando: persiste o registro e sai. Um gatilho
		// de re-checagem (poll ou webhook) reentra no orquestrador depois.
		if err := u.screeningRepo.CreateScreening(ctx, record); err != nil {
			return stepResult{}, fmt.Errorf("failed to persist pending screening: %w", err)
		}
		log.Info().Str("transaction_id", tx.ID).Str("provider_ref", result.ProviderRef).
			Msg("Screening pendente no provider, aguardando re-checagem")
		return stepResult{advanced: false, status: domain.StatusScreeningInProgress}, nil
	}

	severity := u.severityPolicy.Classify(result.RiskScore, result.Blacklisted)
	next := domain.StatusScreeningCleared
	if severity.AtLeast(domain.SeverityHigh) {
		// Severidade alta trava o pipeline: fundos nunca são convertidos
		// nem pagos com flag de risco pendente.
		next = domain.StatusScreeningFlagged
	}

	var events []pendingEvent
	res, err := u.transition(ctx, tx.ID, domain.StatusScreeningInProgress, next, StepScreening,
		func(ctxTx context.Context, txObj gateway.TransactionObject, locked *domain.Transaction) error {
			screeningRepo := u.screeningRepo.WithTx(txObj)
			if err := screeningRepo.CreateScreening(ctxTx, record); err != nil {
				return fmt.Errorf("failed to persist screening: %w", err)
			}
			locked.SetMetadata("screening_uid", record.ProviderRef)
			locked.SetMetadata("screening_severity", string(severity))

			if severity.AtLeast(domain.SeverityMedium) {
				alert := &domain.AMLAlert{
					ID:            uuid.NewString(),
					TransactionID: locked.ID,
					ScreeningID:   record.ID,
					Severity:      severity,
					Status:        domain.AlertStatusUnread,
					Description:   fmt.Sprintf("risk score %d on %s (%s)", record.RiskScore, address, network),
					CreatedAt:     u.now(),
				}
				if err := screeningRepo.CreateAlert(ctxTx, alert); err != nil {
					return fmt.Errorf("failed to persist alert: %w", err)
				}
				events = append(events, pendingEvent{
					routingKey: RoutingKeyAlert,
					payload: AlertEvent{
						TransactionID: locked.ID,
						ScreeningID:   record.ID,
						Severity:      string(severity),
						Description:   alert.Description,
					},
				})
			}
			return nil
		})
	if err != nil {
		return stepResult{}, err
	}
	if !res.advanced {
		// Outra invocação comitou a transição primeiro. O resultado do
		// provider ainda vira registro: a trilha é append-only, um registro
		// por chamada, mesmo na corrida perdida.
		if err := u.screeningRepo.CreateScreening(ctx, record); err != nil {
			return stepResult{}, fmt.Errorf("failed to persist screening: %w", err)
		}
		return res, nil
	}
	res.events = append(res.events, events...)
	return res, nil
}

// ---------------------------------------------------------------------------
// Conversão
// ---------------------------------------------------------------------------

func (u *SettleTransactionUseCase) enterConversion(ctx context.Context, transactionID string) (stepResult, error) {
	tx, err := u.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return stepResult{}, err
	}

	if tx.IsPassThrough() {
		// Moedas já batem: pula CONVERSION_REQUESTED inteiro.
		return u.transition(ctx, transactionID, domain.StatusScreeningCleared, domain.StatusSwapCompleted, StepConversion,
			func(_ context.Context, _ gateway.TransactionObject, locked *domain.Transaction) error {
				locked.SetMetadata("pass_through", "true")
				return nil
			})
	}
	return u.transition(ctx, transactionID, domain.StatusScreeningCleared, domain.StatusConversionRequested, StepConversion, nil)
}

func (u *SettleTransactionUseCase) runConversion(ctx context.Context, tx *domain.Transaction) (stepResult, error) {
	// Retomada pós-crash: se a FX Order já existe, o passo já completou.
	if existing, err := u.fxOrderRepo.GetByTransactionID(ctx, tx.ID); err == nil && existing != nil {
		return u.completeConversion(ctx, tx.ID, existing)
	} else if err != nil && !errors.Is(err, domain.ErrFXOrderNotFound) {
		return stepResult{}, err
	}

	conv, quoteID, err := u.performConversion(ctx, tx)
	if err != nil {
		if errors.Is(err, domain.ErrProviderRejected) {
			// Rejeição de negócio (liquidez, par não suportado): terminal
			// para esta tentativa, fica para o operador.
			return stepResult{}, u.failStep(ctx, tx.ID, StepConversion, err)
		}
		return stepResult{}, fmt.Errorf("conversion step halted: %w", err)
	}

	order := &domain.FXOrder{
		ID:              uuid.NewString(),
		TransactionID:   tx.ID,
		FromCurrency:    tx.FromCurrency,
		ToCurrency:      tx.ToCurrency,
		FromAmount:      conv.FromAmount,
		ToAmount:        conv.ToAmount,
		Rate:            conv.Rate,
		ProviderOrderID: conv.ID,
		ProviderQuoteID: quoteID,
		Status:          conv.Status,
		ExecutedAt:      u.now(),
	}
	return u.completeConversion(ctx, tx.ID, order)
}

// performConversion pede quote e executa antes do vencimento. Quote vencida
// nunca é re-executada: pedimos uma nova, no máximo uma vez.
func (u *SettleTransactionUseCase) performConversion(ctx context.Context, tx *domain.Transaction) (*gateway.Conversion, string, error) {
	requoted := false
	for {
		var quote *gateway.Quote
		err := u.withRetry(ctx, StepConversion, func() error {
			q, err := u.broker.RequestQuote(ctx, tx.FromCurrency, tx.ToCurrency, tx.Amount, gateway.QuoteSideSpend)
			if err == nil {
				quote = q
			}
			return err
		})
		if err != nil {
			return nil, "", err
		}

		if quote.ExpiresIn(u.now()) <= 0 {
			if requoted {
				return nil, "", fmt.Errorf("quote expired before execution: %w", domain.ErrQuoteExpired)
			}
			requoted = true
			continue
		}

		// Execução não tem retry de transporte: não é um passo idempotente.
		conv, err := u.broker.ExecuteQuote(ctx, quote.ID)
		if err == nil {
			return conv, quote.ID, nil
		}
		if errors.Is(err, domain.ErrQuoteExpired) && !requoted {
			requoted = true
			continue
		}
		return nil, "", err
	}
}

func (u *SettleTransactionUseCase) completeConversion(ctx context.Context, transactionID string, order *domain.FXOrder) (stepResult, error) {
	return u.transition(ctx, transactionID, domain.StatusConversionRequested, domain.StatusSwapCompleted, StepConversion,
		func(ctxTx context.Context, txObj gateway.TransactionObject, locked *domain.Transaction) error {
			existing, err := u.fxOrderRepo.WithTx(txObj).GetByTransactionID(ctxTx, transactionID)
			if err != nil && !errors.Is(err, domain.ErrFXOrderNotFound) {
				return err
			}
			if existing == nil {
				if err := u.fxOrderRepo.WithTx(txObj).Create(ctxTx, order); err != nil {
					return fmt.Errorf("failed to persist fx order: %w", err)
				}
				existing = order
			}
			locked.Rate = existing.Rate
			locked.SetMetadata("fx_order_id", existing.ID)
			locked.SetMetadata("fx_quote_id", existing.ProviderQuoteID)
			locked.SetMetadata("fx_provider_order_id", existing.ProviderOrderID)
			return nil
		})
}

// ---------------------------------------------------------------------------
// Payout
// ---------------------------------------------------------------------------

func (u *SettleTransactionUseCase) enterPayout(ctx context.Context, tx *domain.Transaction) (stepResult, error) {
	if tx.Payout == nil {
		return stepResult{}, u.failStep(ctx, tx.ID, StepPayout,
			fmt.Errorf("transaction has no payout recipient: %w", domain.ErrValidation))
	}
	if err := tx.Payout.Recipient.Validate(); err != nil {
		return stepResult{}, u.failStep(ctx, tx.ID, StepPayout, err)
	}

	// Reserva no Redis (SETNX) como segunda camada contra despacho duplicado,
	// além do advisory lock + checagem condicional de status no banco.
	// Erro do Redis não trava o pipeline (fail open, igual ao middleware).
	if u.idempotencyRepo != nil {
		ok, err := u.idempotencyRepo.Reserve(ctx, "payout:"+tx.Reference, payoutReserveTTL)
		if err != nil {
			log.Warn().Err(err).Str("reference", tx.Reference).
				Msg("Falha ao reservar chave de payout no Redis, seguindo só com o lock do banco")
		} else if !ok {
			log.Warn().Str("reference", tx.Reference).
				Msg("Despacho de payout já reservado por outra invocação")
			return stepResult{advanced: false, status: tx.Status}, nil
		}
	}

	return u.transition(ctx, tx.ID, domain.StatusSwapCompleted, domain.StatusPayoutRequested, StepPayout, nil)
}

func (u *SettleTransactionUseCase) runPayout(ctx context.Context, tx *domain.Transaction) (stepResult, error) {
	// Retomada pós-crash: payout já registrado significa passo completo.
	if existing, err := u.payoutRepo.GetByTransactionID(ctx, tx.ID); err == nil && existing != nil {
		return u.completePayout(ctx, tx.ID, existing)
	} else if err != nil && !errors.Is(err, domain.ErrPayoutNotFound) {
		return stepResult{}, err
	}

	amount, currency, err := u.payoutAmount(ctx, tx)
	if err != nil {
		return stepResult{}, err
	}

	// O retry aqui é seguro SOMENTE porque o reference é a chave de
	// idempotência no rail: nunca criamos um segundo registro de payout,
	// repetimos a mesma requisição.
	var result *gateway.PayoutResult
	err = u.withRetry(ctx, StepPayout, func() error {
		r, err := u.dispatcher.CreatePayout(ctx, amount, currency, tx.Payout.Recipient, tx.Reference)
		if err == nil {
			result = r
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrProviderRejected) || errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidAmount) {
			return stepResult{}, u.failStep(ctx, tx.ID, StepPayout, err)
		}
		return stepResult{}, fmt.Errorf("payout step halted: %w", err)
	}

	request := &domain.PayoutRequest{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		Amount:        amount,
		Currency:      currency,
		Recipient:     tx.Payout.Recipient,
		ProviderID:    result.ProviderID,
		Status:        result.Status,
		Simulated:     result.Simulated,
		CreatedAt:     u.now(),
	}
	return u.completePayout(ctx, tx.ID, request)
}

// payoutAmount decide quanto e em qual moeda pagar: o resultado da conversão
// quando houve, o valor do depósito quando pass-through.
func (u *SettleTransactionUseCase) payoutAmount(ctx context.Context, tx *domain.Transaction) (float64, string, error) {
	order, err := u.fxOrderRepo.GetByTransactionID(ctx, tx.ID)
	if err != nil {
		if errors.Is(err, domain.ErrFXOrderNotFound) {
			return tx.Amount, tx.Currency, nil
		}
		return 0, "", err
	}
	if order == nil {
		return tx.Amount, tx.Currency, nil
	}
	return order.ToAmount, order.ToCurrency, nil
}

func (u *SettleTransactionUseCase) completePayout(ctx context.Context, transactionID string, request *domain.PayoutRequest) (stepResult, error) {
	return u.transition(ctx, transactionID, domain.StatusPayoutRequested, domain.StatusPayoutCompleted, StepPayout,
		func(ctxTx context.Context, txObj gateway.TransactionObject, locked *domain.Transaction) error {
			existing, err := u.payoutRepo.WithTx(txObj).GetByTransactionID(ctxTx, transactionID)
			if err != nil && !errors.Is(err, domain.ErrPayoutNotFound) {
				return err
			}
			if existing == nil {
				if err := u.payoutRepo.WithTx(txObj).Create(ctxTx, request); err != nil {
					return fmt.Errorf("failed to persist payout request: %w", err)
				}
				existing = request
			}
			locked.SetMetadata("payout_provider_id", existing.ProviderID)
			if existing.Simulated {
				locked.SetMetadata("payout_simulated", "true")
			}
			return nil
		})
}

// ---------------------------------------------------------------------------
// Falha, retry e eventos
// ---------------------------------------------------------------------------

// failStep grava FAILED com o passo e a causa, e propaga o erro original
// para o chamador. O operador reprocessa a partir do passo gravado.
func (u *SettleTransactionUseCase) failStep(ctx context.Context, transactionID, step string, cause error) error {
	res, err := u.uowFail(ctx, transactionID, step, cause)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", transactionID).
			Msg("Falha ao gravar estado FAILED")
		return cause
	}
	u.publishEvents(ctx, res.events)
	return cause
}

func (u *SettleTransactionUseCase) uowFail(ctx context.Context, transactionID, step string, cause error) (stepResult, error) {
	var result stepResult
	err := u.uow.Run(ctx, func(ctxTx context.Context) error {
		txObj := ctxTx.Value(gateway.TransactionKey)
		if txObj == nil {
			return fmt.Errorf("transaction object missing from context")
		}
		repo := u.transactionRepo.WithTx(txObj)

		if err := repo.AcquireSettlementLock(ctxTx, transactionID); err != nil {
			return err
		}
		tx, err := repo.GetByIDForUpdate(ctxTx, transactionID)
		if err != nil {
			return err
		}
		from := tx.Status
		if err := tx.Fail(step, cause, u.now()); err != nil {
			return err
		}
		if err := repo.Save(ctxTx, tx); err != nil {
			return err
		}
		result = stepResult{
			advanced: false,
			status:   domain.StatusFailed,
			events: []pendingEvent{{
				routingKey: RoutingKeyTransitioned,
				payload: TransitionEvent{
					TransactionID: tx.ID,
					Reference:     tx.Reference,
					FromStatus:    string(from),
					ToStatus:      string(domain.StatusFailed),
					Step:          step,
					Amount:        tx.Amount,
					Currency:      tx.Currency,
				},
			}},
		}
		return nil
	})
	return result, err
}

// withRetry é o loop explícito e limitado de retry: backoff exponencial com
// jitter, teto duro de tentativas, e só para falha transiente de provider.
func (u *SettleTransactionUseCase) withRetry(ctx context.Context, step string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= u.retry.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == u.retry.MaxAttempts {
			break
		}

		delay := u.retry.BaseDelay << (attempt - 1)
		delay += time.Duration(rand.Int63n(int64(u.retry.BaseDelay)))
		log.Warn().Err(lastErr).Str("step", step).Int("attempt", attempt).Dur("delay", delay).
			Msg("Falha transiente de provider, tentando de novo")
		if err := u.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrScreeningUnavailable)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (u *SettleTransactionUseCase) publishEvents(ctx context.Context, events []pendingEvent) {
	if u.eventPublisher == nil {
		return
	}
	for _, ev := range events {
		if err := u.eventPublisher.Publish(ctx, SettlementExchange, ev.routingKey, ev.payload); err != nil {
			// Evento perdido não falha a liquidação, só é logado.
			log.Error().Err(err).Str("routing_key", ev.routingKey).
				Msg("Falha ao publicar evento de liquidação")
		}
	}
}
