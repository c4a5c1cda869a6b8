package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/ezupdate/internal/update"
)

// Limits enforced by Validate.
const (
	MaxRetriesLimit = 20
	MinStallWindow  = 100 * time.Millisecond
)

// slugPattern matches GitHub owner and repository names.
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for required fields and valid values.
func Validate(c *Config) error {
	var errors []string

	if err := validateRepository(c); err != nil {
		errors = append(errors, err.Error())
	}

	if err := validateRetry(c); err != nil {
		errors = append(errors, err.Error())
	}

	if err := validateInstall(c); err != nil {
		errors = append(errors, err.Error())
	}

	if err := validateLogging(c); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateRepository(c *Config) error {
	for _, f := range []struct {
		field, value string
	}{
		{"owner", c.Owner},
		{"repo", c.Repo},
	} {
		if f.value == "" {
			return ValidationError{Field: f.field, Message: fmt.Sprintf("%s is required", f.field)}
		}
		if !slugPattern.MatchString(f.value) {
			return ValidationError{
				Field:   f.field,
				Message: fmt.Sprintf("invalid %s '%s' (letters, digits, '-', '_' and '.' only)", f.field, f.value),
			}
		}
	}

	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ValidationError{Field: "api_url", Message: fmt.Sprintf("invalid URL '%s'", c.APIURL)}
		}
	}

	if c.CurrentVersion != "" {
		if _, err := update.Resolve(c.CurrentVersion); err != nil {
			return ValidationError{Field: "current_version", Message: err.Error()}
		}
	}

	return nil
}

func validateRetry(c *Config) error {
	if c.MaxRetries < 1 || c.MaxRetries > MaxRetriesLimit {
		return ValidationError{
			Field:   "max_retries",
			Message: fmt.Sprintf("must be between 1 and %d, got %d", MaxRetriesLimit, c.MaxRetries),
		}
	}

	if c.StallWindow.Std() < MinStallWindow {
		return ValidationError{
			Field:   "stall_window",
			Message: fmt.Sprintf("must be at least %s, got %s", MinStallWindow, c.StallWindow.Std()),
		}
	}

	if c.SettleDelay < 0 {
		return ValidationError{Field: "settle_delay", Message: "must not be negative"}
	}

	return nil
}

func validateInstall(c *Config) error {
	if !strings.HasPrefix(c.BackupSuffix, ".") || len(c.BackupSuffix) < 2 {
		return ValidationError{
			Field:   "backup_suffix",
			Message: fmt.Sprintf("must start with '.' and name an extension, got '%s'", c.BackupSuffix),
		}
	}
	if strings.ContainsAny(c.BackupSuffix, `/\`) {
		return ValidationError{Field: "backup_suffix", Message: "must not contain path separators"}
	}

	if c.KeepOriginalName && c.OriginalName == "" {
		return ValidationError{Field: "keep_original_name", Message: "requires original_name"}
	}
	if strings.ContainsAny(c.OriginalName, `/\`) {
		return ValidationError{Field: "original_name", Message: "must be a file name, not a path"}
	}

	if c.Asset != "" && strings.ContainsAny(c.Asset, `/\`) {
		return ValidationError{Field: "asset", Message: "must be a file name, not a path"}
	}

	return nil
}

func validateLogging(c *Config) error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return ValidationError{Field: "log_level", Message: err.Error()}
	}
	return nil
}
