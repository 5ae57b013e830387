package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// setting is one environment-backed Config field. Its struct tags are:
//
//	env      variable name
//	envAlt   fallback variable read when env is unset
//	default  value used when neither is set
//	oneof    comma-separated choices, matched case-insensitively and stored as written here
//	pem      literal `\n` sequences become newlines (keys pasted into a dashboard)
//	secret   never printed by String or in load errors
type setting struct {
	section string
	name    string
	env     string
	alt     string
	def     string
	choices []string
	pem     bool
	secret  bool
	value   reflect.Value
}

// settings lists the tagged fields of cfg in declaration order.
func settings(cfg *Config) []setting {
	var out []setting
	root := reflect.ValueOf(cfg).Elem()
	for i := 0; i < root.NumField(); i++ {
		section := root.Type().Field(i)
		v := root.Field(i)
		for j := 0; j < v.NumField(); j++ {
			f := v.Type().Field(j)
			env := f.Tag.Get("env")
			if env == "" || !f.IsExported() {
				continue
			}
			s := setting{
				section: section.Name,
				name:    f.Name,
				env:     env,
				alt:     f.Tag.Get("envAlt"),
				def:     f.Tag.Get("default"),
				pem:     f.Tag.Get("pem") == "true",
				secret:  f.Tag.Get("secret") == "true",
				value:   v.Field(j),
			}
			if c := f.Tag.Get("oneof"); c != "" {
				s.choices = strings.Split(c, ",")
			}
			out = append(out, s)
		}
	}
	return out
}

// Load reads configuration from environment variables, applies defaults and
// validates the result. Every malformed variable is reported, not just the
// first.
func Load() (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, s := range settings(cfg) {
		raw, source := s.lookup()
		if raw == "" {
			continue
		}
		if err := s.set(raw); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%s: %w", source, s.show(raw), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// lookup returns the raw value and the variable that supplied it.
func (s setting) lookup() (raw, source string) {
	if v := os.Getenv(s.env); v != "" {
		return v, s.env
	}
	if s.alt != "" {
		if v := os.Getenv(s.alt); v != "" {
			return v, s.alt
		}
	}
	return s.def, s.env + " (default)"
}

func (s setting) set(raw string) error {
	if s.pem {
		raw = strings.ReplaceAll(raw, `\n`, "\n")
	}
	if s.choices != nil {
		c, err := s.choose(raw)
		if err != nil {
			return err
		}
		raw = c
	}
	return setField(s.value, raw)
}

// choose maps raw onto one of the declared choices.
func (s setting) choose(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, c := range s.choices {
		if strings.EqualFold(raw, c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("must be one of: %s", strings.Join(s.choices, ", "))
}

func (s setting) show(raw string) string {
	if s.secret {
		return "[MASKED]"
	}
	return strconv.Quote(raw)
}

// current renders the field's value for logs.
func (s setting) current() string {
	switch {
	case s.secret && s.value.IsZero():
		return "[UNSET]"
	case s.secret:
		return "[MASKED]"
	case s.value.Kind() == reflect.String:
		return strconv.Quote(s.value.String())
	default:
		return fmt.Sprint(s.value.Interface())
	}
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(int64(i))

	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		var items []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks that the configuration is usable and canonicalizes choice
// fields, so a hand-built Config behaves like a loaded one.
// All failures are collected into a single error.
func (c *Config) Validate() error {
	var errs []string

	for _, s := range settings(c) {
		if s.choices == nil {
			continue
		}
		v, err := s.choose(s.value.String())
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s (%q) %v", s.env, s.value.String(), err))
			continue
		}
		s.value.SetString(v)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.DataFile == "" {
			errs = append(errs, "DATA_FILE is required for the file backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, "MONGODB_URI is required for the mongo backend")
		}
	case BackendPostgres:
		if c.SQL.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres backend")
		}
		if c.SQL.MaxOpenConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
	}

	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SMTP_PORT (%d) must be 1-65535", c.Mail.Port))
	}
	if c.Mail.MaxConcurrent <= 0 {
		errs = append(errs, "MAIL_MAX_CONCURRENT must be positive")
	}
	if c.Mail.SendTimeout <= 0 {
		errs = append(errs, "MAIL_SEND_TIMEOUT must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Admin.RequireAPIKey && len(c.Admin.APIKeys) == 0 {
		errs = append(errs, "ADMIN_REQUIRE_API_KEY is true but ADMIN_API_KEYS is empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns every setting grouped by section, safe to log.
// Fields tagged secret print as [MASKED] or [UNSET].
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	section := ""
	for _, s := range settings(c) {
		switch {
		case section == "":
			fmt.Fprintf(&b, "%s: {", s.section)
		case s.section != section:
			fmt.Fprintf(&b, "}, %s: {", s.section)
		default:
			b.WriteString(", ")
		}
		section = s.section
		fmt.Fprintf(&b, "%s: %s", s.name, s.current())
	}
	if section != "" {
		b.WriteString("}")
	}
	b.WriteString("}")
	return b.String()
}
