package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Source validation
	validEncodings := map[string]bool{"auto": true, "utf-8": true, "latin-1": true, "iso-8859-1": true, "windows-1252": true}
	if !validEncodings[strings.ToLower(c.Source.Encoding)] {
		errs = append(errs, fmt.Sprintf("MIGRATE_ENCODING (%q) must be one of: auto, utf-8, latin-1, iso-8859-1, windows-1252", c.Source.Encoding))
	}
	if d := c.Source.Delimiter; d != "auto" && len([]rune(d)) != 1 {
		errs = append(errs, fmt.Sprintf("MIGRATE_DELIMITER (%q) must be a single character or \"auto\"", d))
	}
	if p := strings.ToLower(c.Source.EncodingPolicy); p != EncodingSkip && p != EncodingAbort {
		errs = append(errs, fmt.Sprintf("MIGRATE_ENCODING_POLICY (%q) must be skip or abort", c.Source.EncodingPolicy))
	}

	// Batch validation
	if c.Batch.Size <= 0 {
		errs = append(errs, "MIGRATE_BATCH_SIZE must be positive")
	}

	// Retry validation
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "MIGRATE_RETRY_MAX_ATTEMPTS must be positive")
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, "MIGRATE_RETRY_BASE_DELAY must be positive")
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, "MIGRATE_RETRY_MULTIPLIER must be >= 1")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, "MIGRATE_RETRY_MAX_DELAY must be >= MIGRATE_RETRY_BASE_DELAY")
	}

	// Run validation
	if c.Run.AbortThreshold <= 0 || c.Run.AbortThreshold > 1 {
		errs = append(errs, fmt.Sprintf("MIGRATE_ABORT_THRESHOLD (%g) must be in (0, 1]", c.Run.AbortThreshold))
	}
	if p := strings.ToLower(c.Run.DuplicatePolicy); p != DuplicateReject && p != DuplicateOverwrite {
		errs = append(errs, fmt.Sprintf("MIGRATE_DUPLICATE_POLICY (%q) must be reject or overwrite", c.Run.DuplicatePolicy))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Source: {Dir: %q, Encoding: %q, Delimiter: %q, HasHeader: %v}, ",
		c.Source.Dir, c.Source.Encoding, c.Source.Delimiter, c.Source.HasHeader))
	b.WriteString(fmt.Sprintf("Batch: {Size: %d}, ", c.Batch.Size))
	b.WriteString(fmt.Sprintf("Retry: {MaxAttempts: %d, BaseDelay: %s, Multiplier: %g, MaxDelay: %s}, ",
		c.Retry.MaxAttempts, c.Retry.BaseDelay, c.Retry.Multiplier, c.Retry.MaxDelay))
	b.WriteString(fmt.Sprintf("Run: {AbortThreshold: %g, DuplicatePolicy: %q}, ",
		c.Run.AbortThreshold, c.Run.DuplicatePolicy))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
