package fluid

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a network's state as Prometheus metrics: per-container
// pressure and occupancy, per-type total mass, element counts and the tick
// counter. Register one collector per hosted network.
type Collector struct {
	network *Network

	pressure *prometheus.Desc
	occupied *prometheus.Desc
	elements *prometheus.Desc
	exploded *prometheus.Desc
	mass     *prometheus.Desc
	ticks    *prometheus.Desc
}

// NewCollector creates a Prometheus collector over a network.
func NewCollector(n *Network) *Collector {
	networkLabel := prometheus.Labels{"network": n.Name()}
	return &Collector{
		network: n,
		pressure: prometheus.NewDesc(
			"fluidnet_container_pressure",
			"Current pressure of a container.",
			[]string{"container"}, networkLabel,
		),
		occupied: prometheus.NewDesc(
			"fluidnet_container_occupied_volume",
			"Volume occupied by fluids in a container.",
			[]string{"container"}, networkLabel,
		),
		elements: prometheus.NewDesc(
			"fluidnet_container_elements",
			"Number of active fluid elements in a container.",
			[]string{"container"}, networkLabel,
		),
		exploded: prometheus.NewDesc(
			"fluidnet_container_exploded",
			"Whether the container exceeded its pressure threshold (0 or 1).",
			[]string{"container"}, networkLabel,
		),
		mass: prometheus.NewDesc(
			"fluidnet_fluid_mass",
			"Total mass of a fluid type across all containers.",
			[]string{"type"}, networkLabel,
		),
		ticks: prometheus.NewDesc(
			"fluidnet_ticks_total",
			"Number of completed simulation ticks.",
			nil, networkLabel,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pressure
	ch <- c.occupied
	ch <- c.elements
	ch <- c.exploded
	ch <- c.mass
	ch <- c.ticks
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	massByType := make(map[string]float64)

	c.network.EachContainer(func(_ ContainerID, status ContainerStatus) {
		ch <- prometheus.MustNewConstMetric(c.pressure, prometheus.GaugeValue, status.Pressure, status.Name)
		ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, status.OccupiedVolume, status.Name)
		ch <- prometheus.MustNewConstMetric(c.elements, prometheus.GaugeValue, float64(len(status.Elements)), status.Name)
		explodedValue := 0.0
		if status.Exploded {
			explodedValue = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.exploded, prometheus.GaugeValue, explodedValue, status.Name)

		for _, el := range status.Elements {
			massByType[el.Type] += el.Mass
		}
	})

	for name, total := range massByType {
		ch <- prometheus.MustNewConstMetric(c.mass, prometheus.GaugeValue, total, name)
	}

	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(c.network.Tick()))
}
