package gateway

import (
	"net/http"

	"github.com/joao-fontenele/shopflow/internal/readiness"
)

type Upstream struct {
	Name  string
	Proxy *ServiceProxy
}

// ReadinessChecks lists what the gateway waits for before serving: the broker
// first when brokerProbe is set, then each upstream's health endpoint in the
// order given.
func ReadinessChecks(brokerProbe readiness.Probe, upstreams []Upstream, client *http.Client) []readiness.Check {
	checks := make([]readiness.Check, 0, len(upstreams)+1)
	if brokerProbe != nil {
		checks = append(checks, readiness.Check{Name: "broker", Probe: brokerProbe})
	}
	for _, u := range upstreams {
		checks = append(checks, readiness.Check{
			Name:  u.Name,
			Probe: readiness.HTTPProbe(client, u.Proxy.HealthURL()),
		})
	}
	return checks
}
