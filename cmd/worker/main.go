package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/config"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/infra/mongodb"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/usecase"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Arquivo .env não encontrado, usando variáveis de ambiente")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}

	clientOptions := options.Client().ApplyURI(cfg.Mongo.URI)
	mongoClient, err := mongo.Connect(clientOptions)
	if err != nil {
		log.Fatalf("Erro ao criar client MongoDB: %v", err)
	}

	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Erro ao desconectar Mongo: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Verifica conexão
	if err := mongoClient.Ping(ctx, nil); err != nil {
		log.Fatalf("Erro ao pinar MongoDB: %v", err)
	}
	log.Println("Conectado ao MongoDB")
	auditRepo := mongodb.NewAuditRepository(mongoClient, cfg.Mongo.Database)

	conn, err := amqp.DialConfig(cfg.RabbitMQ.URL, amqp.Config{
		Properties: amqp.Table{
			"connection_name": "SettlementAudit_Consumer",
		},
	})
	if err != nil {
		log.Fatalf("Erro ao conectar no RabbitMQ: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Erro ao fechar conexão RabbitMQ: %v", err)
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Erro ao abrir canal: %v", err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			log.Printf("Erro ao fechar canal RabbitMQ: %v", err)
		}
	}()

	// Definir QoS (Prefetch Count = 1)
	// Isso garante que o RabbitMQ mande apenas 1 mensagem por vez e espere o Ack.
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalf("Erro ao configurar QoS: %v", err)
	}

	// Declarar a Exchange (Garantia de que ela existe, idempotente)
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
		log.Fatalf("Erro ao declarar exchange: %v", err)
	}

	// Declarar a Fila (QUEUE) - Onde as mensagens ficam guardadas
	q, err := ch.QueueDeclare(
		"settlement_audit_queue", // name
		true,                     // durable (sobrevive a restart do server)
		false,                    // delete when unused
		false,                    // exclusive
		false,                    // no-wait
		nil,                      // arguments
	)
	if err != nil {
		log.Fatalf("Erro ao declarar fila: %v", err)
	}

	// Bind: tudo que começar com 'settlement.' vai para a fila de auditoria
	err = ch.QueueBind(
		q.Name,                     // queue name
		"settlement.#",             // routing key (# é curinga/wildcard)
		usecase.SettlementExchange, // exchange
		false,
		nil,
	)
	if err != nil {
		log.Fatalf("Erro ao fazer bind da fila: %v", err)
	}

	// Iniciar Consumo (ack manual: auditoria não pode perder mensagem)
	msgs, err := ch.Consume(
		q.Name,         // queue
		"audit_worker", // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		log.Fatalf("Erro ao registrar consumidor: %v", err)
	}

	// Monitoramento de queda de conexão
	notifyClose := make(chan *amqp.Error)
	ch.NotifyClose(notifyClose)

	log.Printf(" [*] Worker iniciado. Aguardando mensagens na fila %s...", q.Name)

	go func() {
		for {
			select {
			case err := <-notifyClose:
				if err != nil {
					log.Printf("Canal RabbitMQ fechado: %v", err)
					os.Exit(1) // Força o worker a cair para o Docker subir de novo
				}
				return
			case d, ok := <-msgs:
				if !ok {
					log.Println("Canal de mensagens fechado.")
					os.Exit(1)
				}

				requeue, err := handleDelivery(auditRepo, d)
				if err != nil {
					log.Printf("Erro ao processar mensagem: %v", err)
					// JSON inválido nunca vai processar: descarta sem requeue.
					if err := d.Nack(false, requeue); err != nil {
						log.Printf("Erro ao enviar Nack: %v", err)
					}
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("Erro ao enviar Ack: %v", err)
				}
			}
		}
	}()

	// Graceful Shutdown (Bloqueia a main até receber sinal)
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	<-stopChan

	log.Println("Shutting down worker...")
}

// handleDelivery roteia pela routing key: transição vira SettlementAudit,
// alerta vira AlertAudit. requeue=false para payload que nunca vai processar.
func handleDelivery(auditRepo *mongodb.AuditRepository, d amqp.Delivery) (requeue bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch d.RoutingKey {
	case usecase.RoutingKeyAlert:
		var event usecase.AlertEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			return false, err
		}
		return true, auditRepo.SaveAlert(ctx, mongodb.AlertAudit{
			TransactionID: event.TransactionID,
			ScreeningID:   event.ScreeningID,
			Severity:      event.Severity,
			Description:   event.Description,
		})
	default:
		var event usecase.TransitionEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			return false, err
		}
		return true, auditRepo.SaveTransition(ctx, mongodb.SettlementAudit{
			TransactionID: event.TransactionID,
			Reference:     event.Reference,
			FromStatus:    event.FromStatus,
			ToStatus:      event.ToStatus,
			Step:          event.Step,
			Amount:        event.Amount,
			Currency:      event.Currency,
		})
	}
}
