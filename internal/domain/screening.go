package domain

import "time"

// Severity é o bucket grosseiro derivado do score numérico + flag de blacklist.
type Severity string

const (
	SeverityClear    Severity = "clear"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityClear:    0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// AtLeast compara severidades pela ordem clear < low < medium < high < critical.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// SeverityPolicy define os cortes de classificação. Os limites são configuração,
// não regra de negócio espalhada em call sites — a política muda sem coordenar
// nada com o provider.
type SeverityPolicy struct {
	ClearMax  int // score < ClearMax  -> clear
	LowMax    int // score < LowMax    -> low
	MediumMax int // score < MediumMax -> medium; acima -> high
}

func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{ClearMax: 10, LowMax: 40, MediumMax: 70}
}

// Classify é uma função pura: score + blacklist -> severidade.
// Blacklist sempre vence: critical, independente do score.
func (p SeverityPolicy) Classify(riskScore int, blacklisted bool) Severity {
	if blacklisted {
		return SeverityCritical
	}
	switch {
	case riskScore < p.ClearMax:
		return SeverityClear
	case riskScore < p.LowMax:
		return SeverityLow
	case riskScore < p.MediumMax:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// CheckType distingue a origem da checagem de risco.
type CheckType string

const (
	CheckTypeManual         CheckType = "manual"
	CheckTypePeriodic       CheckType = "periodic"
	CheckTypePreTransaction CheckType = "pre_transaction"
)

// AMLScreening é uma avaliação de risco de um endereço num ponto no tempo.
// Append-only: reavaliar a mesma transação gera registros novos, nunca mutação.
type AMLScreening struct {
	ID            string
	TransactionID string
	Address       string
	Network       string
	RiskScore     int
	Signals       map[string]int
	Blacklisted   bool
	ProviderRef   string
	CheckType     CheckType
	Pending       bool
	CreatedAt     time.Time
}

// AlertStatus acompanha o ciclo de revisão do operador.
type AlertStatus string

const (
	AlertStatusUnread    AlertStatus = "unread"
	AlertStatusReviewed  AlertStatus = "reviewed"
	AlertStatusResolved  AlertStatus = "resolved"
	AlertStatusDismissed AlertStatus = "dismissed"
)

// AMLAlert é o registro derivado levantado quando um screening cruza o
// limiar de severidade. Lido por um dashboard externo (fora de escopo).
type AMLAlert struct {
	ID            string
	TransactionID string
	ScreeningID   string
	Severity      Severity
	Status        AlertStatus
	Description   string
	CreatedAt     time.Time
}
