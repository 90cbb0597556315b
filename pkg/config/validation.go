package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Journal history must be able to hold at least one operation beyond
	// the undo currently in flight.
	if cfg.Journal.MaxHistory < 2 {
		return fmt.Errorf("journal.max_history: must be at least 2")
	}

	// The badger store needs somewhere to put its database.
	if cfg.Journal.Store.Type == "badger" {
		if dir, _ := cfg.Journal.Store.Badger["dir"].(string); dir == "" {
			if inMem, _ := cfg.Journal.Store.Badger["in_memory"].(bool); !inMem {
				return fmt.Errorf("journal.store.badger: dir is required")
			}
		}
	}

	// S3 backups need a bucket and region up front; failing at the first
	// delete would be too late.
	if cfg.Journal.Backup.Type == "s3" {
		if bucket, _ := cfg.Journal.Backup.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("journal.backup.s3: bucket is required")
		}
		if region, _ := cfg.Journal.Backup.S3["region"].(string); region == "" {
			return fmt.Errorf("journal.backup.s3: region is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
