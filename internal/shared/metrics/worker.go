package metrics

import "github.com/prometheus/client_golang/prometheus"

// Worker agrupa as métricas do settlement-worker
type Worker struct {
	Consumed    prometheus.Counter
	Replayed    prometheus.Counter
	DeadLetters prometheus.Counter
	Errors      *prometheus.CounterVec // por fase
	Credited    prometheus.Counter
}

func NewWorker(reg prometheus.Registerer) *Worker {
	m := &Worker{
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_worker_messages_consumed_total",
			Help: "eventos combat_settled consumidos",
		}),
		Replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_worker_replays_total",
			Help: "replays de pagamento concluídos",
		}),
		DeadLetters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_worker_dead_letters_total",
			Help: "mensagens enviadas para a DLQ",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_worker_errors_total",
			Help: "erros por fase",
		}, []string{"stage"}),
		Credited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_worker_credited_total",
			Help: "créditos pagos pelo replay",
		}),
	}
	reg.MustRegister(m.Consumed, m.Replayed, m.DeadLetters, m.Errors, m.Credited)
	return m
}
