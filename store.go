package notekv

import (
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/thoas/go-funk"

	"github.com/mplewis/notekv/backing"
	"github.com/mplewis/notekv/rle"
)

// Store maps named entries onto a Backing.
type Store struct {
	backing backing.Backing
	codec   rle.Codec
	locker  Locker
	log     *log.Logger
}

// Entry is a named text record as callers see it: Content is always the plain text, whatever form it is stored in.
type Entry struct {
	Name       string
	Content    string
	Compressed bool
}

// EntryInfo describes an entry without its content.
type EntryInfo struct {
	Name       string `json:"name"`
	Compressed bool   `json:"compressed"`
}

// New builds a new Store.
func New(args Args) (*Store, error) {
	if args.Backing == nil {
		return nil, errors.New("a backing is required")
	}
	if args.Codec == nil {
		args.Codec = rle.RunLength
	}
	if args.Locker == nil {
		args.Locker = NopLocker{}
	}
	if args.Logger == nil {
		args.Logger = log.Default()
	}

	return &Store{
		backing: args.Backing,
		codec:   args.Codec,
		locker:  args.Locker,
		log:     args.Logger,
	}, nil
}

// Create creates an empty, uncompressed entry. It fails with DuplicateNameError if the name is taken.
func (s *Store) Create(name string) error {
	if err := checkName("create", name); err != nil {
		return err
	}
	release, err := s.locker.Lock(name)
	if err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()

	_, found, err := s.backing.Get(name)
	if err != nil {
		return fmt.Errorf("get %s: %w", name, err)
	}
	if found {
		return DuplicateNameError{Name: name}
	}

	// a flag left behind by an interrupted delete must not apply to the new entry
	if err := s.backing.Del(flagKey(name)); err != nil {
		return fmt.Errorf("del %s: %w", flagKey(name), err)
	}
	if err := s.backing.Set(name, ""); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Write replaces the content of an entry, creating it if needed. When compressed is set the content
// is stored encoded.
func (s *Store) Write(name, content string, compressed bool) error {
	if err := checkName("write", name); err != nil {
		return err
	}
	release, err := s.locker.Lock(name)
	if err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()

	prev, hadPrev, err := s.backing.Get(name)
	if err != nil {
		return fmt.Errorf("get %s: %w", name, err)
	}
	return s.put(name, s.storedForm(name, content, compressed), compressed, prev, hadPrev)
}

// Read returns the entry with the given name, decoded if it was stored compressed. found is false
// when no entry has that name; that is not an error. The content and flag pairs are read under the
// entry's lock so a concurrent write is never seen half done.
func (s *Store) Read(name string) (entry Entry, found bool, err error) {
	if name == "" || isFlagKey(name) {
		return Entry{}, false, nil
	}
	release, err := s.locker.Lock(name)
	if err != nil {
		return Entry{}, false, fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()

	stored, found, err := s.backing.Get(name)
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", name, err)
	}
	if !found {
		return Entry{}, false, nil
	}

	compressed, err := s.flag(name)
	if err != nil {
		return Entry{}, false, err
	}

	content := stored
	if compressed {
		content = s.codec.Decode(stored)
	}
	return Entry{Name: name, Content: content, Compressed: compressed}, true, nil
}

// Delete removes an entry and its flag. Deleting a missing entry is a no-op.
func (s *Store) Delete(name string) error {
	if name == "" || isFlagKey(name) {
		return nil
	}
	release, err := s.locker.Lock(name)
	if err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()

	// content first: a leftover flag pair is invisible and is cleared by the next Create or Write
	if err := s.backing.Del(name); err != nil {
		return fmt.Errorf("del %s: %w", name, err)
	}
	if err := s.backing.Del(flagKey(name)); err != nil {
		return fmt.Errorf("del %s: %w", flagKey(name), err)
	}
	return nil
}

// List returns the names of all entries, in the order the backing enumerates them.
func (s *Store) List() ([]string, error) {
	keys, err := s.backing.List("")
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return funk.Filter(keys, func(k string) bool { return !isFlagKey(k) }).([]string), nil
}

// Entries returns every entry name with its compression flag.
func (s *Store) Entries() ([]EntryInfo, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	infos := make([]EntryInfo, 0, len(names))
	for _, name := range names {
		compressed, err := s.lockedFlag(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, EntryInfo{Name: name, Compressed: compressed})
	}
	return infos, nil
}

// lockedFlag reads the compression flag of an entry while holding its lock.
func (s *Store) lockedFlag(name string) (bool, error) {
	release, err := s.locker.Lock(name)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()
	return s.flag(name)
}

// SetCompression re-stores an existing entry with the given compression flag, keeping its text.
func (s *Store) SetCompression(name string, compressed bool) error {
	if err := checkName("set compression", name); err != nil {
		return err
	}
	release, err := s.locker.Lock(name)
	if err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()

	stored, found, err := s.backing.Get(name)
	if err != nil {
		return fmt.Errorf("get %s: %w", name, err)
	}
	if !found {
		return NotFoundError{Name: name}
	}
	current, err := s.flag(name)
	if err != nil {
		return err
	}
	if current == compressed {
		return nil
	}

	content := stored
	if current {
		content = s.codec.Decode(stored)
	}
	return s.put(name, s.storedForm(name, content, compressed), compressed, stored, true)
}

// storedForm returns what gets persisted for content under the given flag.
func (s *Store) storedForm(name, content string, compressed bool) string {
	if !compressed {
		return content
	}
	if rle.HasDigits(content) {
		s.log.Printf("WARN: entry %s contains digits and will not read back as written under %s", name, s.codec.Name())
	}
	if !utf8.ValidString(content) {
		s.log.Printf("WARN: entry %s is not valid UTF-8 and will not read back as written under %s", name, s.codec.Name())
	}
	return s.codec.Encode(content)
}

// put writes the content pair and then the flag pair. If the flag cannot be written, the previous
// content is restored so the pair never disagrees with the content.
func (s *Store) put(name, stored string, compressed bool, prev string, hadPrev bool) error {
	if err := s.backing.Set(name, stored); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	err := s.backing.Set(flagKey(name), formatFlag(compressed))
	if err == nil {
		return nil
	}

	var rerr error
	if hadPrev {
		rerr = s.backing.Set(name, prev)
	} else {
		rerr = s.backing.Del(name)
	}
	if rerr != nil {
		s.log.Printf("WARN: failed to roll back %s after flag write error: %v", name, rerr)
	}
	return fmt.Errorf("set %s: %w", flagKey(name), err)
}

// flag reads the compression flag of an entry. A missing flag pair is false.
func (s *Store) flag(name string) (bool, error) {
	v, found, err := s.backing.Get(flagKey(name))
	if err != nil {
		return false, fmt.Errorf("get %s: %w", flagKey(name), err)
	}
	return found && v == "true", nil
}

// checkName rejects names no entry can have.
func checkName(op, name string) error {
	if name == "" {
		return MissingNameError{Op: op}
	}
	if isFlagKey(name) {
		return ReservedNameError{Name: name}
	}
	return nil
}
