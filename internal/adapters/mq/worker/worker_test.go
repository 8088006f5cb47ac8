package worker_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/okian/trialmatch/internal/adapters/mq/queue"
	worker "github.com/okian/trialmatch/internal/adapters/mq/worker"
	model "github.com/okian/trialmatch/internal/domain/model"
	logging "github.com/okian/trialmatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue(n int) *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, n)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

func (mq *mockQueue) add(i int) {
	mq.jobs <- queue.Job{Index: i, Patient: model.Patient{ID: fmt.Sprintf("patient_%04d", i+1), Age: i}}
}

type countingRanker struct {
	calls atomic.Int64
}

func (r *countingRanker) Rank(p *model.Patient) []model.MatchResult {
	r.calls.Add(1)
	return []model.MatchResult{{NCTID: "NCT-" + p.ID, Score: p.Age % 101, Reasons: []string{"ok"}}}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue of patients", t, func() {
		q := newMockQueue(4)
		ranker := &countingRanker{}
		slots := worker.NewSlots(4)
		w := worker.NewInMemoryWorker(q, ranker, slots,
			worker.WithName("worker-test"),
			worker.WithLogger(logging.Nop()),
		)

		convey.Convey("When the queue is drained", func() {
			for i := 0; i < 4; i++ {
				q.add(i)
			}
			_ = q.Close()
			w.Run(context.Background())

			convey.Convey("Then every slot holds its own patient's results", func() {
				convey.So(w.Processed(), convey.ShouldEqual, int64(4))
				for i := 0; i < 4; i++ {
					convey.So(slots[i], convey.ShouldHaveLength, 1)
					convey.So(slots[i][0].NCTID, convey.ShouldEqual, fmt.Sprintf("NCT-patient_%04d", i+1))
				}
			})
		})

		convey.Convey("When a job index is outside the slots", func() {
			q.jobs <- queue.Job{Index: 9}
			_ = q.Close()
			w.Run(context.Background())

			convey.Convey("Then the job is skipped", func() {
				convey.So(w.Processed(), convey.ShouldEqual, int64(0))
				convey.So(ranker.calls.Load(), convey.ShouldEqual, int64(0))
			})
		})

		convey.Convey("When the worker is shut down while idle", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then shutdown returns promptly", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			w.Run(ctx)

			convey.Convey("Then the worker stops", func() {
				stopped := false
				select {
				case <-w.Done():
					stopped = true
				default:
				}
				convey.So(stopped, convey.ShouldBeTrue)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		const n = 100
		q := queue.NewInMemoryQueue(queue.WithCapacity(n))
		ctx := context.Background()
		for i := 0; i < n; i++ {
			q.Enqueue(ctx, queue.Job{Index: i, Patient: model.Patient{ID: fmt.Sprintf("patient_%04d", i+1), Age: i}})
		}
		_ = q.Close()

		ranker := &countingRanker{}
		slots := worker.NewSlots(n)
		pool := worker.NewPool(4, q, ranker, slots, worker.WithLogger(logging.Nop()))

		convey.Convey("When the pool runs to completion", func() {
			pool.Start(ctx)
			processed := pool.Wait()

			convey.Convey("Then each job was processed exactly once", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 4)
				convey.So(processed, convey.ShouldEqual, n)
				convey.So(ranker.calls.Load(), convey.ShouldEqual, int64(n))
				for i := 0; i < n; i++ {
					convey.So(slots[i], convey.ShouldHaveLength, 1)
				}
			})

			convey.Convey("Then shutdown is a no-op", func() {
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pool with no explicit size", t, func() {
		pool := worker.NewPool(0, newMockQueue(1), worker.RankerFunc(func(*model.Patient) []model.MatchResult { return nil }), worker.NewSlots(0))

		convey.Convey("Then it sizes itself to the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
