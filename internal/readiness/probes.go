package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPProbe issues GET url and treats any 2xx response as ready.
func HTTPProbe(client *http.Client, url string) Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
		}
		return nil
	}
}

// PingProbe adapts anything with a PingContext method, such as *sql.DB.
func PingProbe(p interface {
	PingContext(ctx context.Context) error
}) Probe {
	return p.PingContext
}
