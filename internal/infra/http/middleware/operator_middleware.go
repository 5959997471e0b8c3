package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// AuthorizeFunc é a decisão do colaborador de autenticação de admin:
// "este chamador é um operador autorizado?". O pipeline confia na decisão
// e não re-deriva nada (sessão, roles etc. ficam fora de escopo).
type AuthorizeFunc func(r *http.Request) bool

// Operator protege os endpoints de operador (hold/release, re-entrada manual).
func Operator(authorize AuthorizeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authorize == nil || !authorize(r) {
				log.Warn().Str("path", r.URL.Path).Msg("Acesso de operador negado")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				if _, err := w.Write([]byte(`{"error":"Operador não autorizado"}`)); err != nil {
					log.Error().Err(err).Msg("Falha ao escrever resposta de negação")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
