package sse

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// feedAll feeds every chunk and collects the emitted lines.
func feedAll(f *Framer, chunks ...string) []string {
	var lines []string
	for _, c := range chunks {
		lines = append(lines, f.Feed([]byte(c))...)
	}
	return lines
}

var _ = Describe("Framer", func() {
	var f *Framer

	BeforeEach(func() {
		f = NewFramer(0)
	})

	Describe("Feed", func() {
		It("emits a single terminated line", func() {
			lines := f.Feed([]byte("data: hello\n"))
			Expect(lines).To(Equal([]string{"data: hello"}))
			Expect(f.Pending()).To(BeZero())
		})

		It("emits multiple lines arriving in one chunk, in order", func() {
			lines := f.Feed([]byte("one\ntwo\nthree\n"))
			Expect(lines).To(Equal([]string{"one", "two", "three"}))
		})

		It("retains a trailing partial line between feeds", func() {
			lines := f.Feed([]byte("data: hel"))
			Expect(lines).To(BeEmpty())
			Expect(f.Pending()).To(Equal(len("data: hel")))

			lines = f.Feed([]byte("lo\n"))
			Expect(lines).To(Equal([]string{"data: hello"}))
			Expect(f.Pending()).To(BeZero())
		})

		It("handles a delimiter split across two feeds", func() {
			lines := feedAll(f, "first", "\nsecond\n")
			Expect(lines).To(Equal([]string{"first", "second"}))
		})

		It("emits empty lines faithfully", func() {
			lines := f.Feed([]byte("\n\ndata: x\n\n"))
			Expect(lines).To(Equal([]string{"", "", "data: x", ""}))
		})

		It("returns no lines for an empty chunk", func() {
			Expect(f.Feed(nil)).To(BeEmpty())
			Expect(f.Feed([]byte{})).To(BeEmpty())
		})

		It("yields identical lines regardless of how the byte stream is chunked", func() {
			stream := "data: alpha\ndata: beta\n\nignored line\ndata: [DONE]\ntrailing partial"

			whole := NewFramer(0)
			want := whole.Feed([]byte(stream))

			// Split the same stream at every possible boundary, one byte at a
			// time, and in ragged chunks; content and order must not change.
			for split := 1; split < len(stream); split++ {
				fr := NewFramer(0)
				got := feedAll(fr, stream[:split], stream[split:])
				Expect(got).To(Equal(want), "split at %d", split)
			}

			byByte := NewFramer(0)
			var got []string
			for i := 0; i < len(stream); i++ {
				got = append(got, byByte.Feed([]byte{stream[i]})...)
			}
			Expect(got).To(Equal(want))
			Expect(byByte.Pending()).To(Equal(len("trailing partial")))
		})

		It("handles payloads larger than the initial buffer hint", func() {
			small := NewFramer(16)
			big := strings.Repeat("x", 128*1024)

			lines := small.Feed([]byte("data: " + big + "\n"))
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(Equal("data: " + big))
		})
	})
})
