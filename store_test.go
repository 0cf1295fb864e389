package notekv_test

import (
	"bytes"
	"errors"
	"log"

	"github.com/mplewis/notekv"
	"github.com/mplewis/notekv/backing"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("store", func() {
	var mem *backing.Memory
	var logs *bytes.Buffer
	var s *notekv.Store

	BeforeEach(func() {
		mem = backing.NewMemory()
		logs = &bytes.Buffer{}
		var err error
		s, err = notekv.New(notekv.Args{Backing: mem, Logger: log.New(logs, "", 0)})
		Expect(err).NotTo(HaveOccurred())
	})

	raw := func(key string) (string, bool) {
		v, found, err := mem.Get(key)
		Expect(err).NotTo(HaveOccurred())
		return v, found
	}

	It("requires a backing", func() {
		_, err := notekv.New(notekv.Args{})
		Expect(err).To(MatchError("a backing is required"))
	})

	Describe("Create", func() {
		It("creates an empty plain entry", func() {
			Expect(s.Create("x")).To(Succeed())

			entry, found, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry).To(Equal(notekv.Entry{Name: "x", Content: "", Compressed: false}))

			_, hasFlag := raw("x_compressed")
			Expect(hasFlag).To(BeFalse())
			Expect(s.List()).To(ConsistOf("x"))
		})

		It("rejects an empty name", func() {
			Expect(s.Create("")).To(MatchError(notekv.MissingNameError{Op: "create"}))
			Expect(mem.Len()).To(Equal(0))
		})

		It("rejects names ending in the flag suffix", func() {
			err := s.Create("x_compressed")
			var reserved notekv.ReservedNameError
			Expect(errors.As(err, &reserved)).To(BeTrue())
			Expect(reserved.Name).To(Equal("x_compressed"))
			Expect(mem.Len()).To(Equal(0))
		})

		It("fails on an existing name and leaves the entry untouched", func() {
			Expect(s.Write("x", "hello", true)).To(Succeed())

			Expect(s.Create("x")).To(MatchError(notekv.DuplicateNameError{Name: "x"}))

			entry, found, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry.Content).To(Equal("hello"))
			Expect(entry.Compressed).To(BeTrue())
		})

		It("treats an existing empty entry as a duplicate", func() {
			Expect(s.Create("x")).To(Succeed())
			Expect(s.Create("x")).To(MatchError(notekv.DuplicateNameError{Name: "x"}))
		})

		It("clears a stale flag pair", func() {
			Expect(mem.Set("x_compressed", "true")).To(Succeed())
			Expect(s.Create("x")).To(Succeed())

			entry, _, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Compressed).To(BeFalse())
		})
	})

	Describe("Write", func() {
		It("stores plain content as is", func() {
			Expect(s.Write("x", "hello", false)).To(Succeed())

			v, _ := raw("x")
			Expect(v).To(Equal("hello"))
			f, _ := raw("x_compressed")
			Expect(f).To(Equal("false"))
		})

		It("stores compressed content encoded and reads it back decoded", func() {
			Expect(s.Write("x", "hello", true)).To(Succeed())

			v, _ := raw("x")
			Expect(v).To(Equal("he2lo"))
			Expect(v).NotTo(Equal("hello"))
			f, _ := raw("x_compressed")
			Expect(f).To(Equal("true"))

			entry, found, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry.Content).To(Equal("hello"))
			Expect(entry.Compressed).To(BeTrue())
		})

		It("adds a new name to the list", func() {
			Expect(s.Write("fresh", "aaab", true)).To(Succeed())
			Expect(s.List()).To(ConsistOf("fresh"))
		})

		It("overwrites content and flag", func() {
			Expect(s.Write("x", "aaab", true)).To(Succeed())
			Expect(s.Write("x", "aaab", false)).To(Succeed())

			v, _ := raw("x")
			Expect(v).To(Equal("aaab"))
			entry, _, _ := s.Read("x")
			Expect(entry.Compressed).To(BeFalse())
		})

		It("rejects an empty name", func() {
			Expect(s.Write("", "hello", true)).To(MatchError(notekv.MissingNameError{Op: "write"}))
			Expect(mem.Len()).To(Equal(0))
		})

		It("warns when compressing text with digits", func() {
			Expect(s.Write("x", "room 101", true)).To(Succeed())
			Expect(logs.String()).To(ContainSubstring("WARN: entry x contains digits"))

			Expect(s.Write("y", "room", true)).To(Succeed())
			Expect(logs.String()).NotTo(ContainSubstring("entry y"))
		})

		It("warns when compressing text that is not valid UTF-8", func() {
			Expect(s.Write("x", "a\xffb", true)).To(Succeed())
			Expect(logs.String()).To(ContainSubstring("WARN: entry x is not valid UTF-8"))

			Expect(s.Write("y", "a\xffb", false)).To(Succeed())
			Expect(logs.String()).NotTo(ContainSubstring("entry y"))
			entry, _, err := s.Read("y")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Content).To(Equal("a\xffb"))
		})

		It("restores the previous content when the flag cannot be written", func() {
			Expect(s.Write("x", "hello", false)).To(Succeed())

			flaky := FlakyBacking{Backing: mem, failSet: map[string]bool{"x_compressed": true}}
			fs, err := notekv.New(notekv.Args{Backing: flaky, Logger: log.New(logs, "", 0)})
			Expect(err).NotTo(HaveOccurred())

			err = fs.Write("x", "goodbye", true)
			Expect(errors.Is(err, errBackingDown)).To(BeTrue())

			entry, found, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry.Content).To(Equal("hello"))
			Expect(entry.Compressed).To(BeFalse())
		})

		It("removes a new entry when its flag cannot be written", func() {
			flaky := FlakyBacking{Backing: mem, failSet: map[string]bool{"x_compressed": true}}
			fs, err := notekv.New(notekv.Args{Backing: flaky})
			Expect(err).NotTo(HaveOccurred())

			Expect(fs.Write("x", "hello", true)).NotTo(Succeed())
			Expect(s.List()).To(BeEmpty())
		})
	})

	Describe("Read", func() {
		It("reports absence without an error", func() {
			entry, found, err := s.Read("nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(entry).To(Equal(notekv.Entry{}))
		})

		It("treats a missing flag pair as plain", func() {
			Expect(mem.Set("legacy", "3ab")).To(Succeed())
			entry, found, err := s.Read("legacy")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry.Content).To(Equal("3ab"))
			Expect(entry.Compressed).To(BeFalse())
		})

		It("does not expose flag pairs as entries", func() {
			Expect(s.Write("x", "hello", true)).To(Succeed())
			_, found, err := s.Read("x_compressed")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("does not change stored state", func() {
			Expect(s.Write("x", "aaab", true)).To(Succeed())
			_, _, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			v, _ := raw("x")
			Expect(v).To(Equal("3ab"))
		})
	})

	Describe("Delete", func() {
		It("removes content and flag", func() {
			Expect(s.Write("x", "hello", true)).To(Succeed())
			Expect(s.Delete("x")).To(Succeed())

			Expect(s.List()).NotTo(ContainElement("x"))
			_, found, err := s.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(mem.Len()).To(Equal(0))
		})

		It("is a no-op for a missing name", func() {
			Expect(s.Write("a", "1", false)).To(Succeed())
			Expect(s.Create("b")).To(Succeed())
			before, err := s.List()
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Delete("nope")).To(Succeed())
			Expect(s.Delete("")).To(Succeed())

			after, err := s.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
		})
	})

	Describe("List and Entries", func() {
		It("excludes flag pairs and reports flags", func() {
			Expect(s.Create("a")).To(Succeed())
			Expect(s.Write("b", "bbb", true)).To(Succeed())
			Expect(s.Write("c", "c", false)).To(Succeed())

			Expect(s.List()).To(ConsistOf("a", "b", "c"))
			Expect(s.Entries()).To(ConsistOf(
				notekv.EntryInfo{Name: "a", Compressed: false},
				notekv.EntryInfo{Name: "b", Compressed: true},
				notekv.EntryInfo{Name: "c", Compressed: false},
			))
		})

		It("is empty for an empty backing", func() {
			Expect(s.List()).To(BeEmpty())
			Expect(s.Entries()).To(BeEmpty())
		})
	})

	Describe("SetCompression", func() {
		It("encodes a plain entry in place", func() {
			Expect(s.Write("x", "aaab", false)).To(Succeed())
			Expect(s.SetCompression("x", true)).To(Succeed())

			v, _ := raw("x")
			Expect(v).To(Equal("3ab"))
			entry, _, _ := s.Read("x")
			Expect(entry.Content).To(Equal("aaab"))
			Expect(entry.Compressed).To(BeTrue())
		})

		It("decodes a compressed entry in place", func() {
			Expect(s.Write("x", "aaab", true)).To(Succeed())
			Expect(s.SetCompression("x", false)).To(Succeed())

			v, _ := raw("x")
			Expect(v).To(Equal("aaab"))
			entry, _, _ := s.Read("x")
			Expect(entry.Compressed).To(BeFalse())
		})

		It("leaves a matching entry alone", func() {
			Expect(s.Create("x")).To(Succeed())
			Expect(s.SetCompression("x", false)).To(Succeed())
			_, hasFlag := raw("x_compressed")
			Expect(hasFlag).To(BeFalse())
		})

		It("fails for a missing entry", func() {
			Expect(s.SetCompression("nope", true)).To(MatchError(notekv.NotFoundError{Name: "nope"}))
			Expect(s.SetCompression("", true)).To(MatchError(notekv.MissingNameError{Op: "set compression"}))
		})
	})

	Describe("locking", func() {
		It("guards every mutation and read and releases it", func() {
			l := NewCountingLocker()
			ls, err := notekv.New(notekv.Args{Backing: mem, Locker: l})
			Expect(err).NotTo(HaveOccurred())

			Expect(ls.Create("x")).To(Succeed())
			Expect(ls.Write("x", "aaab", false)).To(Succeed())
			Expect(ls.SetCompression("x", true)).To(Succeed())
			_, _, err = ls.Read("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(ls.Entries()).To(ConsistOf(notekv.EntryInfo{Name: "x", Compressed: true}))
			Expect(ls.Delete("x")).To(Succeed())

			Expect(l.locked["x"]).To(Equal(6))
			Expect(l.released["x"]).To(Equal(6))
		})

		It("aborts when the lock cannot be taken", func() {
			l := NewCountingLocker()
			l.err = errors.New("timed out locking key: x")
			ls, err := notekv.New(notekv.Args{Backing: mem, Locker: l})
			Expect(err).NotTo(HaveOccurred())

			Expect(ls.Write("x", "hello", false)).To(MatchError(ContainSubstring("timed out locking key: x")))
			Expect(mem.Len()).To(Equal(0))

			Expect(mem.Set("y", "hello")).To(Succeed())
			_, _, err = ls.Read("y")
			Expect(err).To(MatchError(ContainSubstring("timed out locking key: x")))
			_, err = ls.Entries()
			Expect(err).To(MatchError(ContainSubstring("timed out locking key: x")))
		})
	})
})
