package metrics

import "github.com/prometheus/client_golang/prometheus"

// Wager agrupa as métricas de apostas e liquidação
type Wager struct {
	BetsPlaced    prometheus.Counter
	BetRejections *prometheus.CounterVec // por código de erro
	Refunds       *prometheus.CounterVec // ok | failed
	Settlements   *prometheus.CounterVec // settled | código de erro
	Payouts       *prometheus.CounterVec // paid | skipped | failed
	PayoutCredits prometheus.Counter     // créditos emitidos em prêmios
}

// NewWager cria e registra as métricas no registerer informado
func NewWager(reg prometheus.Registerer) *Wager {
	m := &Wager{
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wager_bets_placed_total",
			Help: "apostas registradas com débito efetivado",
		}),
		BetRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_bet_rejections_total",
			Help: "apostas rejeitadas por motivo",
		}, []string{"reason"}),
		Refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_refunds_total",
			Help: "estornos compensatórios do escrow",
		}, []string{"result"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_settlements_total",
			Help: "tentativas de liquidação por resultado",
		}, []string{"result"}),
		Payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_payouts_total",
			Help: "pagamentos de apostas vencedoras por resultado",
		}, []string{"result"}),
		PayoutCredits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wager_payout_credits_total",
			Help: "créditos pagos a apostas vencedoras",
		}),
	}
	reg.MustRegister(m.BetsPlaced, m.BetRejections, m.Refunds, m.Settlements, m.Payouts, m.PayoutCredits)
	return m
}
