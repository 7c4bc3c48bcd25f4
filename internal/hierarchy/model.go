package hierarchy

import "errors"

var (
	// ErrBroken: referência de pai não resolve, ciclo ou profundidade
	// estourada. Falha de integridade de dados — fatal, não se tenta de novo
	// com a mesma entrada.
	ErrBroken = errors.New("hierarchy: broken parent chain")

	// ErrCommissionOverflow: a soma de shares delegados abaixo de um nível
	// excede o que o pai delegou. Falha de configuração — rejeitada antes de
	// chegar em qualquer liquidação.
	ErrCommissionOverflow = errors.New("hierarchy: delegated share exceeds parent share")

	ErrNodeNotFound = errors.New("hierarchy: node not found")
)

// CommissionType é o tipo fechado de comissão de um nível.
// Fechado de propósito: o motor de comissão faz switch exaustivo.
type CommissionType int

const (
	NoCommission CommissionType = iota
	PercentageOfStake
	PercentageOfWinnings
)

func (t CommissionType) String() string {
	switch t {
	case NoCommission:
		return "NONE"
	case PercentageOfStake:
		return "PERCENTAGE_OF_STAKE"
	case PercentageOfWinnings:
		return "PERCENTAGE_OF_WINNINGS"
	}
	return "UNKNOWN"
}

// ParseCommissionType converte a representação persistida.
func ParseCommissionType(s string) (CommissionType, bool) {
	switch s {
	case "NONE", "":
		return NoCommission, true
	case "PERCENTAGE_OF_STAKE":
		return PercentageOfStake, true
	case "PERCENTAGE_OF_WINNINGS":
		return PercentageOfWinnings, true
	}
	return NoCommission, false
}

// BetCategory separa os dois pools independentes de comissão.
// Sem fórmula de mistura: cada categoria usa só o seu pool.
type BetCategory string

const (
	CategorySports BetCategory = "sports"
	CategoryCasino BetCategory = "casino"
)

// CommissionTerms são os termos de um pool pra um nível da cadeia.
type CommissionTerms struct {
	Type    CommissionType
	RateBps int64 // basis points (100 bps = 1%)
}

// Profile é o snapshot de configuração de comissão de um nó.
// Administrado por um colaborador externo; aqui é somente leitura.
type Profile struct {
	SharePercent          int64 // share retido neste nível
	AvailableSharePercent int64 // share ainda delegável pra baixo
	CasinoSharePercent    int64 // pool independente pra apostas de cassino
	Sports                CommissionTerms
	Casino                CommissionTerms
}

// Terms devolve os termos do pool da categoria.
func (p Profile) Terms(cat BetCategory) CommissionTerms {
	if cat == CategoryCasino {
		return p.Casino
	}
	return p.Sports
}

// Node é um nó da árvore de propriedade (apostador, agente ou revendedor).
// A aresta de pai é uma relação por id, nunca um ponteiro: o grafo é
// resolvido por lookup e protegido contra ciclos na travessia.
type Node struct {
	ID       string
	Code     string
	ParentID string // vazio na raiz
	Profile  Profile
}

// Level é um nível da cadeia de ancestrais devolvida por ChainOf,
// do pai imediato até a raiz.
type Level struct {
	UserID  string
	Code    string
	Profile Profile
}
