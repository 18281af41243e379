// Package errs defines the error taxonomy shared by the styling engine,
// the resource cache and the layer loader.
package errs

import "fmt"

// ConfigError reports a malformed layer configuration row: a style channel
// with an incomplete scale, a channel with neither value nor property, or an
// unknown icon anchor. It is fatal to parsing that row.
type ConfigError struct {
	Layer   string
	Channel string
	Msg     string
}

func (e *ConfigError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("layer %q: %s", e.Layer, e.Msg)
	}
	return fmt.Sprintf("layer %q rule %s: %s", e.Layer, e.Channel, e.Msg)
}

// Configf builds a ConfigError with a formatted message.
func Configf(layer, channel, format string, args ...any) *ConfigError {
	return &ConfigError{Layer: layer, Channel: channel, Msg: fmt.Sprintf(format, args...)}
}

// FetchError reports a network or parse failure for an auxiliary resource
// (lookup table or template).
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LoadError reports a failure to fetch or decode a layer's geometry.
// The layer stays unloaded and a later enable retries.
type LoadError struct {
	Layer string
	URL   string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load layer %q from %s: %v", e.Layer, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
