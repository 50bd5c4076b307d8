package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages Prometheus registration for the Collector plus the
// standard Go runtime and process collectors.
type Registry struct {
	registry  *prometheus.Registry
	collector *Collector
}

// NewRegistry creates a metrics registry reporting snap under the default
// "khronos" namespace.
func NewRegistry(snap Snapshotter) *Registry {
	return NewRegistryWithNamespace("khronos", snap)
}

// NewRegistryWithNamespace creates a metrics registry reporting snap under
// the given namespace.
func NewRegistryWithNamespace(namespace string, snap Snapshotter) *Registry {
	return &Registry{
		registry:  prometheus.NewRegistry(),
		collector: NewCollector(namespace, snap),
	}
}

// Register registers the status collector plus the Go/process collectors.
func (r *Registry) Register() error {
	if err := r.registry.Register(r.collector); err != nil {
		return err
	}
	r.registry.MustRegister(collectors.NewGoCollector())
	r.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return nil
}

// MustRegister registers all metrics and panics on error.
func (r *Registry) MustRegister() {
	if err := r.Register(); err != nil {
		panic(err)
	}
}

// GetRegistry returns the underlying Prometheus registry, e.g. for
// promhttp.HandlerFor.
func (r *Registry) GetRegistry() *prometheus.Registry {
	return r.registry
}
