package notekv

import "fmt"

// MissingNameError is returned when an operation that needs an entry name is given an empty one.
type MissingNameError struct {
	Op string
}

// Error converts a MissingNameError into a human-readable string.
func (e MissingNameError) Error() string {
	return fmt.Sprintf("%s: missing entry name", e.Op)
}

// DuplicateNameError is returned by Create when an entry with the same name already exists.
type DuplicateNameError struct {
	Name string
}

// Error converts a DuplicateNameError into a human-readable string.
func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("entry %q already exists", e.Name)
}

// ReservedNameError is returned when an entry name ends in FlagSuffix and would collide with the
// flag pair of another entry.
type ReservedNameError struct {
	Name string
}

// Error converts a ReservedNameError into a human-readable string.
func (e ReservedNameError) Error() string {
	return fmt.Sprintf("entry name %q ends in reserved suffix %q", e.Name, FlagSuffix)
}

// NotFoundError is returned by operations that need an existing entry. Read does not return it;
// it reports absence through its found result.
type NotFoundError struct {
	Name string
}

// Error converts a NotFoundError into a human-readable string.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("entry %q not found", e.Name)
}
