package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mtlprog/snxdash/internal/domain"
)

// RatesReader returns the current price table.
type RatesReader interface {
	Latest(ctx context.Context) (domain.ExchangeRates, error)
}

var rateDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "rates", "usd"),
	"Current USD price per currency key.",
	[]string{"currency"}, nil,
)

// RatesCollector reports the price table at scrape time.
type RatesCollector struct {
	reader  RatesReader
	timeout time.Duration
}

// NewRatesCollector creates a collector over reader.
func NewRatesCollector(reader RatesReader) *RatesCollector {
	return &RatesCollector{reader: reader, timeout: 5 * time.Second}
}

func (c *RatesCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rateDesc
}

func (c *RatesCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	rates, err := c.reader.Latest(ctx)
	if err != nil {
		slog.Debug("metrics: price table unavailable", "error", err)
		return
	}
	for key, price := range rates {
		ch <- prometheus.MustNewConstMetric(rateDesc, prometheus.GaugeValue, price.InexactFloat64(), key)
	}
}
