package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"smart-parking/internal/parking"
)

// StatsSource is read on every scrape.
type StatsSource interface {
	Stats() parking.Stats
}

// SlotCollector exposes registry occupancy as Prometheus gauges.
type SlotCollector struct {
	source    StatsSource
	total     *prometheus.Desc
	occupied  *prometheus.Desc
	available *prometheus.Desc
	amenity   *prometheus.Desc
}

func NewSlotCollector(source StatsSource) *SlotCollector {
	return &SlotCollector{
		source: source,
		total: prometheus.NewDesc("parking_slots_total",
			"Number of defined parking slots", nil, nil),
		occupied: prometheus.NewDesc("parking_slots_occupied",
			"Number of occupied parking slots", nil, nil),
		available: prometheus.NewDesc("parking_slots_available",
			"Number of free parking slots", nil, nil),
		amenity: prometheus.NewDesc("parking_slots_by_amenity",
			"Number of parking slots offering an amenity", []string{"amenity"}, nil),
	}
}

func (c *SlotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.occupied
	ch <- c.available
	ch <- c.amenity
}

func (c *SlotCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(stats.Occupied))
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(stats.Available))
	ch <- prometheus.MustNewConstMetric(c.amenity, prometheus.GaugeValue, float64(stats.Covered), "covered")
	ch <- prometheus.MustNewConstMetric(c.amenity, prometheus.GaugeValue, float64(stats.EVCharging), "ev_charging")
}

// Register adds a SlotCollector for source to reg, or to the default registerer
// when reg is nil. A collector that is already registered is reused.
func Register(reg prometheus.Registerer, source StatsSource) (*SlotCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := NewSlotCollector(source)
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*SlotCollector), nil
		}
		return nil, err
	}
	return c, nil
}
