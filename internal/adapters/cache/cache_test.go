package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/drillsheet/internal/adapters/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new cache", t, func() {
		c := cache.NewInMemoryCache(cache.WithMaxSize(3))

		Convey("Then it starts empty", func() {
			So(c.Size(), ShouldEqual, 0)
			_, ok := c.Get(ctx, "missing")
			So(ok, ShouldBeFalse)
		})

		Convey("When storing a value", func() {
			c.Put(ctx, "a", []byte("1"))

			Convey("Then it can be read back", func() {
				v, ok := c.Get(ctx, "a")
				So(ok, ShouldBeTrue)
				So(string(v), ShouldEqual, "1")
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("And storing it again replaces the value", func() {
				c.Put(ctx, "a", []byte("2"))
				v, _ := c.Get(ctx, "a")
				So(string(v), ShouldEqual, "2")
				So(c.Size(), ShouldEqual, 1)
			})
		})

		Convey("When more values arrive than fit", func() {
			for _, k := range []string{"a", "b", "c", "d"} {
				c.Put(ctx, k, []byte(k))
			}

			Convey("Then the oldest is evicted", func() {
				So(c.Size(), ShouldEqual, 3)
				_, ok := c.Get(ctx, "a")
				So(ok, ShouldBeFalse)
				for _, k := range []string{"b", "c", "d"} {
					_, ok := c.Get(ctx, k)
					So(ok, ShouldBeTrue)
				}
			})
		})

		Convey("When removing entries from each position", func() {
			for _, k := range []string{"a", "b", "c"} {
				c.Put(ctx, k, []byte(k))
			}
			c.Remove(ctx, "b")
			c.Remove(ctx, "c")
			c.Remove(ctx, "missing")

			Convey("Then only the remaining entry is left", func() {
				So(c.Size(), ShouldEqual, 1)
				_, ok := c.Get(ctx, "a")
				So(ok, ShouldBeTrue)
			})

			Convey("And the list still evicts correctly", func() {
				c.Put(ctx, "x", nil)
				c.Put(ctx, "y", nil)
				c.Put(ctx, "z", nil)
				_, ok := c.Get(ctx, "a")
				So(ok, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a disabled cache", t, func() {
		c := cache.NewInMemoryCache(cache.WithMaxSize(0))
		c.Put(ctx, "a", []byte("1"))

		Convey("Then nothing is stored", func() {
			_, ok := c.Get(ctx, "a")
			So(ok, ShouldBeFalse)
			So(c.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given concurrent writers", t, func() {
		c := cache.NewInMemoryCache(cache.WithMaxSize(16))
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					key := fmt.Sprintf("k-%d-%d", i, j%20)
					c.Put(ctx, key, []byte(key))
					c.Get(ctx, key)
					if j%7 == 0 {
						c.Remove(ctx, key)
					}
				}
			}(i)
		}
		wg.Wait()

		Convey("Then the bound holds", func() {
			So(c.Size(), ShouldBeLessThanOrEqualTo, 16)
		})
	})
}
