package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks settlement outcomes and fee distribution.
type CheckoutMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutAmount   *prometheus.HistogramVec
	checkoutsTotal   *prometheus.CounterVec
	lotOccupancy     *prometheus.GaugeVec
}

var (
	checkoutMetricsOnce sync.Once
	checkoutMetrics     *CheckoutMetrics
)

func Checkout() *CheckoutMetrics {
	return CheckoutWithConfig(Config{})
}

func CheckoutWithConfig(cfg Config) *CheckoutMetrics {
	checkoutMetricsOnce.Do(func() {
		checkoutMetrics = newCheckoutMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return checkoutMetrics
}

func ResetCheckoutMetricsForTest() {
	checkoutMetricsOnce = sync.Once{}
	checkoutMetrics = nil
}

func newCheckoutMetrics(registerer prometheus.Registerer, cfg Config) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "torii"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	checkoutDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "torii_checkout_stay_minutes",
			Help: "Distribution of billed stay durations.",
			Buckets: []float64{
				15,   // quarter hour
				30,   // half hour
				60,   // 1h
				180,  // 3h
				480,  // 8h
				1440, // one day
				2880, // two days
			},
			ConstLabels: constLabels,
		},
		[]string{"method"},
	)

	checkoutAmount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "torii_checkout_amount_yen",
			Help:        "Distribution of settled amounts in whole yen.",
			Buckets:     []float64{300, 600, 1300, 3000, 6000, 12000, 24000},
			ConstLabels: constLabels,
		},
		[]string{"method"},
	)

	checkoutsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "torii_checkouts_total",
			Help:        "Total checkout attempts by method and result.",
			ConstLabels: constLabels,
		},
		[]string{"method", "result"}, // result: success | conflict | failed
	)

	lotOccupancy := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "torii_lot_occupied_spaces",
			Help:        "Occupied spaces per lot from the latest snapshot.",
			ConstLabels: constLabels,
		},
		[]string{"lot_id"},
	)

	registerer.MustRegister(
		checkoutDuration,
		checkoutAmount,
		checkoutsTotal,
		lotOccupancy,
	)

	return &CheckoutMetrics{
		checkoutDuration: checkoutDuration,
		checkoutAmount:   checkoutAmount,
		checkoutsTotal:   checkoutsTotal,
		lotOccupancy:     lotOccupancy,
	}
}

func (m *CheckoutMetrics) ObserveCheckout(method string, duration time.Duration, amount int64) {
	if m == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(method).Observe(duration.Minutes())
	m.checkoutAmount.WithLabelValues(method).Observe(float64(amount))
}

func (m *CheckoutMetrics) IncCheckout(method, result string) {
	if m == nil {
		return
	}
	m.checkoutsTotal.WithLabelValues(method, result).Inc()
}

func (m *CheckoutMetrics) SetOccupancy(lotID string, occupied int64) {
	if m == nil {
		return
	}
	m.lotOccupancy.WithLabelValues(lotID).Set(float64(occupied))
}
