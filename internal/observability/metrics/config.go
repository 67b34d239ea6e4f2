package metrics

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Config identifies the service on every exported metric.
type Config struct {
	ServiceName string
	Environment string
}

var sensitiveLabelKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"qr_code",
}

// FilterAttributes drops attributes with sensitive keys.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(strings.TrimSpace(string(attr.Key)))
		sensitive := false
		for _, needle := range sensitiveLabelKeys {
			if strings.Contains(key, needle) {
				sensitive = true
				break
			}
		}
		if sensitive {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
