// Package notekv implements a store of named text entries over a key-value backing, with optional
// run-length encoding of entry content.
//
// Each entry is persisted as two key-value pairs: the entry name holds the stored content and
// name + "_compressed" holds "true" or "false", recording whether that content was encoded when it
// was last written. A missing flag pair reads as "false".
//
// Example usage:
//
//		store, err := notekv.New(notekv.Args{Backing: backing.NewMemory()})
//		if err != nil {
//			return err
//		}
//
//		if err := store.Create("todo"); err != nil {
//			return err
//		}
//		if err := store.Write("todo", "buy more coffee", true); err != nil {
//			return err
//		}
//
//		entry, found, err := store.Read("todo")
//		if err != nil {
//			return err
//		}
//		if !found {
//			return errors.New("todo disappeared")
//		}
//		fmt.Println(entry.Content, entry.Compressed)
package notekv

import (
	"log"
	"strings"

	"github.com/mplewis/notekv/backing"
	"github.com/mplewis/notekv/rle"
)

// FlagSuffix is appended to an entry name to form the key of its flag pair.
const FlagSuffix = "_compressed"

// Args are the arguments for a new store.
type Args struct {
	Backing backing.Backing // Required. The backend for this store, where the data lives and is accessed.
	Codec   rle.Codec       // Optional. The codec applied to compressed entries. Defaults to rle.RunLength.
	Locker  Locker          // Optional. Guards the two-key write and delete sequences per entry. Defaults to no locking.
	Logger  *log.Logger     // Optional. Where warnings go. Defaults to log.Default().
}

// Locker serializes mutations of a single entry across writers.
type Locker interface {
	// Lock acquires the given names and returns a function that releases them, or an error if they
	// could not be acquired.
	Lock(names ...string) (release func(), err error)
}

// NopLocker is the default Locker. It never blocks and never fails.
type NopLocker struct{}

// Lock returns immediately.
func (NopLocker) Lock(names ...string) (func(), error) {
	return func() {}, nil
}

// flagKey returns the key of the flag pair for the given entry name.
func flagKey(name string) backing.Key {
	return name + FlagSuffix
}

// isFlagKey reports whether a stored key is a flag pair rather than an entry.
func isFlagKey(key backing.Key) bool {
	return strings.HasSuffix(key, FlagSuffix)
}

// formatFlag renders a compression flag the way it is persisted.
func formatFlag(compressed bool) string {
	if compressed {
		return "true"
	}
	return "false"
}
