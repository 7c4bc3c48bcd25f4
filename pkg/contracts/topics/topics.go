package topics

const (
	// Mercados (status/resultado vindos do provedor de fixtures)
	MarketEvents    = "market_events"
	MarketEventsDLQ = "market_events_dlq"

	// Apostas
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"
)
