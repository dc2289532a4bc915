package adapter

// Config contains the configuration for one adapter-owned connection.
// It is supplied at construction and immutable thereafter.
type Config struct {
	// DSN is the connection string, e.g. postgres://host:5432/app. Required.
	DSN string `json:"dsn"`

	// Username and Password override or supplement credentials in the DSN.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Options carries driver-specific connection options (use sparingly).
	Options map[string]string `json:"options,omitempty"`
}

// Validate checks that the required fields are present.
func (c Config) Validate() error {
	if c.DSN == "" {
		return NewConfigurationError("", "dsn", "missing required connection string")
	}
	return nil
}

// Option returns a driver-specific option value, or the given default when
// the option is unset.
func (c Config) Option(key, def string) string {
	if v, ok := c.Options[key]; ok {
		return v
	}
	return def
}

// cloneOptions copies the options map so the adapter's view of the
// configuration cannot change after construction.
func cloneOptions(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
