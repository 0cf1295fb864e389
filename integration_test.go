package notekv_test

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mplewis/notekv"
	"github.com/mplewis/notekv/backing"
	"github.com/mplewis/notekv/lock"
	"github.com/mplewis/notekv/multilock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// hammer has workers write alternately plain and compressed content to one entry while a reader
// checks that every read sees the plain text, then checks that the surviving content and flag agree.
func hammer(s *notekv.Store, b backing.Backing) {
	const k = "contended"
	Expect(s.Write(k, "xxxxyyyy", false)).To(Succeed())

	done := make(chan struct{})
	reads := make(chan int)
	go func() {
		defer GinkgoRecover()
		n := 0
		defer func() { reads <- n }()
		for {
			entry, found, err := s.Read(k)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry.Content).To(Equal("xxxxyyyy"))
			n++

			select {
			case <-done:
				return
			case <-time.After(100 * time.Microsecond):
			}
		}
	}()

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		compressed := i%2 == 0
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			Expect(s.Write(k, "xxxxyyyy", compressed)).To(Succeed())
		}()
	}
	wg.Wait()
	close(done)
	Expect(<-reads).To(BeNumerically(">", 0))

	entry, found, err := s.Read(k)
	Expect(err).NotTo(HaveOccurred())
	Expect(found).To(BeTrue())
	Expect(entry.Content).To(Equal("xxxxyyyy"))

	stored, _, err := b.Get(k)
	Expect(err).NotTo(HaveOccurred())
	if entry.Compressed {
		Expect(stored).To(Equal("4x4y"))
	} else {
		Expect(stored).To(Equal("xxxxyyyy"))
	}
}

var _ = Describe("integration test", func() {
	Context("with a memory backing and local locking", func() {
		It("keeps content and flag in agreement under concurrent writers and readers", func() {
			mem := backing.NewMemory()
			s, err := notekv.New(notekv.Args{Backing: mem, Locker: multilock.NewLocker(0)})
			Expect(err).NotTo(HaveOccurred())
			hammer(s, mem)
		})
	})

	Context("with a Redis backing and redsync locking", func() {
		addr := os.Getenv("TEST_WITH_LIVE_REDIS")
		if addr == "" {
			It("needs a live server", func() {
				Skip("TEST_WITH_LIVE_REDIS is not set")
			})
			return
		}

		It("keeps content and flag in agreement under concurrent writers and readers", func() {
			r := backing.NewRedis(backing.RedisArgs{Addr: addr, Namespace: "integration"})
			keys, err := r.List("")
			Expect(err).NotTo(HaveOccurred())
			for _, k := range keys {
				Expect(r.Del(k)).To(Succeed())
			}

			s, err := notekv.New(notekv.Args{
				Backing: r,
				Locker:  lock.New(lock.Args{Client: r.Client(), Namespace: "integration"}),
			})
			Expect(err).NotTo(HaveOccurred())
			hammer(s, r)
		})
	})

	Context("with an S3 backing", func() {
		bucket := os.Getenv("TEST_WITH_LIVE_S3")
		if bucket == "" {
			It("needs a live bucket", func() {
				Skip("TEST_WITH_LIVE_S3 is not set")
			})
			return
		}

		It("round-trips entries", func() {
			b, err := backing.NewS3(backing.S3Args{
				Bucket:    bucket,
				Namespace: "integration",
				Endpoint:  os.Getenv("TEST_S3_ENDPOINT"),
			})
			Expect(err).NotTo(HaveOccurred())
			s, err := notekv.New(notekv.Args{Backing: b})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 3; i++ {
				name := fmt.Sprintf("note-%d", i)
				Expect(s.Delete(name)).To(Succeed())
				Expect(s.Write(name, "aaab", i%2 == 0)).To(Succeed())
			}
			Expect(s.List()).To(ConsistOf("note-0", "note-1", "note-2"))

			entry, found, err := s.Read("note-0")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entry).To(Equal(notekv.Entry{Name: "note-0", Content: "aaab", Compressed: true}))

			for i := 0; i < 3; i++ {
				Expect(s.Delete(fmt.Sprintf("note-%d", i))).To(Succeed())
			}
			Expect(s.List()).To(BeEmpty())
		})
	})
})
