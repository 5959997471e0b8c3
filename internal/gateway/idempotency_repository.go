package gateway

import (
	"context"
	"time"
)

// Representa o que salvamos no Redis
type CachedResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string][]string // bom para headers customizados
}

type IdempotencyRepository interface {
	// Get retorna a resposta cacheada se existir. nil se não existir.
	Get(ctx context.Context, key string) (*CachedResponse, error)

	// Save armazena a resposta com um TTL (Time To Live)
	Save(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error

	// Reserve tenta registrar a chave de forma atômica (SETNX).
	// Retorna false se outra invocação já reservou — a segunda camada de
	// proteção contra payout duplicado, junto com a checagem de status no banco.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
