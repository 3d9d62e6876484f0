package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeDelivered    = "delivered"
	outcomeSendFailed   = "send_failed"
	outcomeInvalidEmail = "invalid_email"
)

var deliveryAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsletter_delivery_attempts_total",
		Help: "Delivery attempts by the queue worker, labelled by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(deliveryAttempts)
}
