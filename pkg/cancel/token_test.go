package cancel

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Token", func() {
	var tok *Token

	BeforeEach(func() {
		tok = NewToken()
	})

	It("starts active", func() {
		Expect(tok.Cancelled()).To(BeFalse())
	})

	Describe("Cancel", func() {
		It("transitions to cancelled", func() {
			tok.Cancel()
			Expect(tok.Cancelled()).To(BeTrue())
		})

		It("invokes registered callbacks in registration order", func() {
			var order []int
			tok.OnCancel(func() { order = append(order, 1) })
			tok.OnCancel(func() { order = append(order, 2) })
			tok.OnCancel(func() { order = append(order, 3) })

			tok.Cancel()

			Expect(order).To(Equal([]int{1, 2, 3}))
		})

		It("invokes each callback exactly once regardless of repeated Cancel calls", func() {
			count := 0
			tok.OnCancel(func() { count++ })

			for i := 0; i < 5; i++ {
				tok.Cancel()
			}

			Expect(count).To(Equal(1))
		})

		It("is safe to call concurrently, still firing callbacks once", func() {
			count := 0
			var countMu sync.Mutex
			tok.OnCancel(func() {
				countMu.Lock()
				count++
				countMu.Unlock()
			})

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tok.Cancel()
				}()
			}
			wg.Wait()

			Expect(count).To(Equal(1))
		})
	})

	Describe("OnCancel", func() {
		It("invokes the callback immediately and inline when already cancelled", func() {
			tok.Cancel()

			invoked := false
			tok.OnCancel(func() { invoked = true })

			Expect(invoked).To(BeTrue())
		})

		It("invokes a late-registered callback exactly once", func() {
			tok.Cancel()

			count := 0
			tok.OnCancel(func() { count++ })
			tok.Cancel()

			Expect(count).To(Equal(1))
		})

		It("allows a callback to register another callback, which runs inline", func() {
			var order []string
			tok.OnCancel(func() {
				order = append(order, "outer")
				tok.OnCancel(func() { order = append(order, "inner") })
			})

			tok.Cancel()

			Expect(order).To(Equal([]string{"outer", "inner"}))
		})
	})

	Describe("Func", func() {
		It("adapts a plain function to Canceller", func() {
			invoked := false
			var c Canceller = Func(func() { invoked = true })
			c.Cancel()
			Expect(invoked).To(BeTrue())
		})
	})
})
