package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the registry to a Pushgateway under job, grouped by instance.
// An empty url disables pushing.
func Push(ctx context.Context, url, job, instance string) error {
	if url == "" {
		return nil
	}

	p := push.New(url, job).Gatherer(Registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: pushing to %s: %w", url, err)
	}
	return nil
}
