package events

// Evento publicado no tópico "market_events" pelo provedor de fixtures.
// Entrega at-least-once: o consumidor precisa ser idempotente por
// (market_id, generation).
type MarketStatusChanged struct {
	MarketID         string `json:"market_id"`
	Status           string `json:"status"` // "OPEN" | "SUSPENDED" | "SETTLED" | "VOIDED"
	WinningSelection string `json:"winning_selection,omitempty"`
	Generation       int64  `json:"generation"` // incrementado a cada reemissão do resultado
	TsUnixMs         int64  `json:"ts_unix_ms"`
}
