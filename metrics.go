package lmkv

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is prefixed before every metric. If it is changed, it must be done
// before any environment is opened.
var Namespace = "lmkv"

type metrics struct {
	// all metrics fields must be exported
	// to be able to return them by Metrics()
	// using reflection

	TxnBegun          *prometheus.CounterVec
	TxnCommitted      prometheus.Counter
	TxnCommitFailures prometheus.Counter
	TxnAborted        prometheus.Counter
	TxnReset          prometheus.Counter
	TxnRenewed        prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "txn"

	return metrics{
		TxnBegun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "begun_count",
			Help:      "Number of transactions begun.",
		}, []string{"kind"}),
		TxnCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "committed_count",
			Help:      "Number of transactions committed.",
		}),
		TxnCommitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "commit_failure_count",
			Help:      "Number of commits that failed.",
		}),
		TxnAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "aborted_count",
			Help:      "Number of transactions aborted.",
		}),
		TxnReset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "reset_count",
			Help:      "Number of read-only transactions reset.",
		}),
		TxnRenewed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "renewed_count",
			Help:      "Number of read-only transactions renewed.",
		}),
	}
}

func prometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		if u, ok := v.Field(i).Interface().(prometheus.Collector); ok {
			cs = append(cs, u)
		}
	}
	return cs
}

// Metrics returns the environment's prometheus collectors.
func (env *Env) Metrics() []prometheus.Collector {
	return prometheusCollectorsFromFields(env.metrics)
}
