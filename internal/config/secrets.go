package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields
// replaced by the redaction placeholder "***". Use this when logging the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	out.Archive = cfg.Archive
	redact(&out.Archive.AccessKey)
	redact(&out.Archive.SecretKey)

	out.Server = cfg.Server
	redact(&out.Server.ModeratorKey)

	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhook)

	// Copy slices so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}

	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
