package money

import "math"

// Toda a plataforma trabalha em centavos (int64). Percentuais de comissão são
// armazenados em basis points (1% = 100 bps) pra manter a aritmética inteira.

// ApplyBps aplica uma taxa em basis points sobre um valor em centavos,
// arredondando half-up na menor unidade monetária.
func ApplyBps(amountCents int64, rateBps int64) int64 {
	return RoundHalfUpDiv(amountCents*rateBps, 10_000)
}

// RoundHalfUpDiv divide num/den arredondando half-up (0.5 sobe, inclusive
// para negativos: -0.5 → 0). den precisa ser positivo.
func RoundHalfUpDiv(num int64, den int64) int64 {
	if den <= 0 {
		panic("money: denominador não positivo")
	}
	return floorDiv(num+den/2, den)
}

// MulOdds multiplica centavos por uma odd decimal, arredondando half-up.
// Usado pra derivar responsabilidade potencial e payout bruto.
func MulOdds(amountCents int64, odd float64) int64 {
	return int64(math.Floor(float64(amountCents)*odd + 0.5))
}

// floorDiv é a divisão inteira com arredondamento para -inf
// (a divisão nativa do Go trunca em direção a zero).
func floorDiv(num, den int64) int64 {
	q := num / den
	if num%den != 0 && (num < 0) != (den < 0) {
		q--
	}
	return q
}
