package queue_test

import (
	"context"
	"sync"
	"testing"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	convey.Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		convey.So(q.Capacity(), convey.ShouldEqual, 2)
		convey.So(q.Len(ctx), convey.ShouldEqual, 0)

		convey.Convey("When two tasks are enqueued", func() {
			convey.So(q.Enqueue(ctx, queue.Task{Index: 0}), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, queue.Task{Index: 1}), convey.ShouldBeTrue)

			convey.Convey("Then a third is rejected without blocking", func() {
				convey.So(q.Enqueue(ctx, queue.Task{Index: 2}), convey.ShouldBeFalse)
				convey.So(q.Len(ctx), convey.ShouldEqual, 2)
			})

			convey.Convey("Then they dequeue in order and the channel closes after Close", func() {
				convey.So(q.Close(), convey.ShouldBeNil)
				var got []int
				for task := range q.Dequeue(ctx) {
					got = append(got, task.Index)
				}
				convey.So(got, convey.ShouldResemble, []int{0, 1})
			})
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then enqueue fails and Close is idempotent", func() {
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(q.Enqueue(ctx, queue.Task{}), convey.ShouldBeFalse)
				convey.So(q.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			convey.Convey("Then enqueue fails", func() {
				convey.So(q.Enqueue(cctx, queue.Task{}), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a default queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(0))
		convey.So(q.Capacity(), convey.ShouldEqual, 1024)
	})
}

func TestInMemoryQueue_ConcurrentConsumers(t *testing.T) {
	convey.Convey("Given a full queue and several consumers", t, func() {
		ctx := context.Background()
		const n = 500
		q := queue.NewInMemoryQueue(queue.WithCapacity(n))
		for i := 0; i < n; i++ {
			q.Enqueue(ctx, queue.Task{Index: i})
		}
		convey.So(q.Close(), convey.ShouldBeNil)

		var mu sync.Mutex
		seen := make(map[int]int)
		var wg sync.WaitGroup
		for c := 0; c < 8; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for task := range q.Dequeue(ctx) {
					mu.Lock()
					seen[task.Index]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		convey.Convey("Then every task is consumed exactly once", func() {
			convey.So(len(seen), convey.ShouldEqual, n)
			for _, count := range seen {
				convey.So(count, convey.ShouldEqual, 1)
			}
		})
	})
}
