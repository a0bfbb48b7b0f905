package config

// ConfigDiff describes what changed between two configs.
// Only server log level and the resolver block are applied live; every
// other change is listed in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ResolverChanged is true if any field of the resolver block changed.
	ResolverChanged bool

	// AliasFileChanged is true if resolver.alias_file points elsewhere. The
	// caller reloads the alias table in that case.
	AliasFileChanged bool

	// RestartRequired lists the config keys whose new values only take
	// effect after a restart.
	RestartRequired []string
}

// Changed reports whether d carries any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ResolverChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.ResolverChanged = !resolverEqual(old.Resolver, new.Resolver)
	d.AliasFileChanged = old.Resolver.AliasFile != new.Resolver.AliasFile

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if old.Server.FeedbackLog != new.Server.FeedbackLog {
		d.RestartRequired = append(d.RestartRequired, "server.feedback_log")
	}
	if old.Catalog != new.Catalog {
		d.RestartRequired = append(d.RestartRequired, "catalog")
	}
	if old.Submit != new.Submit {
		d.RestartRequired = append(d.RestartRequired, "submit")
	}
	if !telemetryEqual(old.Telemetry, new.Telemetry) {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

func resolverEqual(a, b ResolverConfig) bool {
	return a.FuzzyThreshold == b.FuzzyThreshold &&
		a.PhoneticThreshold == b.PhoneticThreshold &&
		a.PhoneticEnabled() == b.PhoneticEnabled() &&
		a.ModificationScope == b.ModificationScope &&
		a.AliasFile == b.AliasFile
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func telemetryEqual(a, b TelemetryConfig) bool {
	if a.Restaurant != b.Restaurant || a.Instance != b.Instance {
		return false
	}
	ra, rb := a.TraceSampleRatio, b.TraceSampleRatio
	if ra == nil || rb == nil {
		return ra == rb
	}
	return *ra == *rb
}
