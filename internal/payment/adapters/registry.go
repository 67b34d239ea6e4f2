// Package adapters hosts the payment provider integrations and the
// registry the payment service selects them from.
package adapters

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

// Registry resolves provider names to adapter factories.
type Registry struct {
	factories map[string]domain.AdapterFactory
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{factories: make(map[string]domain.AdapterFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		r.factories[strings.ToLower(f.Provider())] = f
	}
	return r
}

// BuildRegistry wires the built-in providers.
func BuildRegistry() *Registry {
	return NewRegistry(
		StripeFactory{},
		SquareFactory{},
		PayPayFactory{},
		LinePayFactory{},
		RakutenPayFactory{},
	)
}

func (r *Registry) ProviderExists(provider string) bool {
	_, ok := r.factories[strings.ToLower(provider)]
	return ok
}

func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

func (r *Registry) NewAdapter(provider string, config domain.AdapterConfig) (domain.Adapter, error) {
	factory, ok := r.factories[strings.ToLower(provider)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return factory.NewAdapter(config)
}

func stringConfig(config map[string]any, key string) string {
	value, _ := config[key].(string)
	return strings.TrimSpace(value)
}

func httpClient(config map[string]any) *http.Client {
	timeout := 10 * time.Second
	if raw, ok := config["timeout_seconds"].(float64); ok && raw > 0 {
		timeout = time.Duration(raw) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// doJSON performs one provider API call and decodes the JSON response.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func unmarshalEvent(payload []byte, out any) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return domain.ErrInvalidPayload
	}
	return nil
}

// parseEventTime accepts RFC3339 timestamps and falls back to now so a
// provider omitting the field does not reject the event.
func parseEventTime(value string) time.Time {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC()
	}
	return time.Now().UTC()
}

func hmacSHA256(secret string, message []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return mac.Sum(nil)
}

func verifyHMAC(secret string, message []byte, signature []byte) bool {
	return hmac.Equal(hmacSHA256(secret, message), signature)
}
