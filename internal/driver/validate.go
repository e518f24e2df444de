package driver

import (
	"fmt"
	"regexp"
)

// validIdentifier matches standard SQL identifiers: alphanumeric
// characters and underscores, starting with a letter or underscore, at
// most 128 characters (the common SQL limit).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,127}$`)

// ValidateIdentifier checks that name is a safe SQL identifier. Every
// schema/table/column name a driver interpolates into catalog SQL (the
// describe/list/completions paths take these from the request) must pass
// here first, since identifiers cannot be bound as statement parameters.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must contain only alphanumeric characters and underscores, start with letter or underscore", name)
	}
	return nil
}

// ValidateSchemaTable validates both schema and table identifiers.
func ValidateSchemaTable(schema, table string) error {
	if err := ValidateIdentifier(schema); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if err := ValidateIdentifier(table); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}
	return nil
}
