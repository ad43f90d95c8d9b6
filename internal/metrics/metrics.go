package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"looklike/internal/models"
)

const namespace = "looklike"

var (
	entitiesDesc = prometheus.NewDesc(
		namespace+"_entities",
		"Number of stored entities by kind",
		[]string{"kind"},
		nil,
	)
	campaignProspectsDesc = prometheus.NewDesc(
		namespace+"_campaign_prospects",
		"Number of campaign prospect links by outreach status",
		[]string{"status"},
		nil,
	)
	campaignOutcomesDesc = prometheus.NewDesc(
		namespace+"_campaign_outcomes",
		"Campaign prospect links split into won and not yet won",
		[]string{"outcome"},
		nil,
	)

	upstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Places and geocoding requests by operation and outcome",
	}, []string{"op", "outcome"})

	upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of a single places or geocoding request attempt",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Prospect searches by outcome",
	}, []string{"outcome"})

	searchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "End-to-end prospect search latency",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	searchResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Prospects returned per successful search",
		Buckets:   prometheus.LinearBuckets(0, 10, 10),
	})

	geocodeCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_cache_total",
		Help:      "Geocode cache lookups by result",
	}, []string{"result"})
)

// StatsSource is the read side the collector scrapes. *db.DB implements it.
type StatsSource interface {
	GetStats(ctx context.Context) (*models.Stats, error)
	CountCampaignProspectsByStatus(ctx context.Context) (map[models.Status]int64, error)
}

// StatsCollector is a custom Prometheus collector that reads entity and
// campaign status counts from the database on each scrape.
type StatsCollector struct {
	source  StatsSource
	timeout time.Duration
}

// NewStatsCollector returns a collector backed by source.
func NewStatsCollector(source StatsSource) *StatsCollector {
	return &StatsCollector{source: source, timeout: 5 * time.Second}
}

// Describe sends the metric descriptors to the channel.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- entitiesDesc
	ch <- campaignProspectsDesc
	ch <- campaignOutcomesDesc
}

// Collect queries the database and emits the counts as gauges.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.source.GetStats(ctx)
	if err != nil {
		slog.Error("failed to collect entity metrics", "error", err)
	} else {
		for kind, n := range map[string]int64{
			"reference_client": stats.ReferenceClients,
			"campaign":         stats.Campaigns,
			"prospect":         stats.Prospects,
			"search":           stats.Searches,
		} {
			ch <- prometheus.MustNewConstMetric(entitiesDesc, prometheus.GaugeValue, float64(n), kind)
		}
	}

	counts, err := c.source.CountCampaignProspectsByStatus(ctx)
	if err != nil {
		slog.Error("failed to collect campaign status metrics", "error", err)
		return
	}
	var won, open int64
	for _, status := range models.Statuses {
		n := counts[status]
		ch <- prometheus.MustNewConstMetric(campaignProspectsDesc, prometheus.GaugeValue, float64(n), string(status))
		if status.IsSuccess() {
			won += n
		} else {
			open += n
		}
	}
	ch <- prometheus.MustNewConstMetric(campaignOutcomesDesc, prometheus.GaugeValue, float64(won), "success")
	ch <- prometheus.MustNewConstMetric(campaignOutcomesDesc, prometheus.GaugeValue, float64(open), "other")
}

var initOnce sync.Once

// Init registers the collectors with the default registry.
// Must be called once at startup.
func Init(source StatsSource) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			upstreamRequests,
			upstreamDuration,
			searches,
			searchDuration,
			searchResults,
			geocodeCache,
		)
		if source != nil {
			prometheus.MustRegister(NewStatsCollector(source))
		}
	})
}

// ObserveUpstreamRequest records one places/geocoding request attempt.
func ObserveUpstreamRequest(op, outcome string, d time.Duration) {
	upstreamRequests.WithLabelValues(op, outcome).Inc()
	upstreamDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveSearch records a finished prospect search.
func ObserveSearch(outcome string, d time.Duration, results int) {
	searches.WithLabelValues(outcome).Inc()
	searchDuration.Observe(d.Seconds())
	if outcome == "ok" {
		searchResults.Observe(float64(results))
	}
}

// RecordGeocodeCache counts a cache "hit" or "miss".
func RecordGeocodeCache(result string) {
	geocodeCache.WithLabelValues(result).Inc()
}
