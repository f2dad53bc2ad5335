package sandbox

import (
	"context"
	"math"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// frameInterval is the virtual delay of requestAnimationFrame in ms.
const frameInterval = 16

// maxTimerDelay is the longest delay in ms. Longer delays are clamped so due
// times cannot overflow.
const maxTimerDelay = math.MaxInt32

type timer struct {
	id   int64
	due  int64
	fn   goja.Callable
	args []goja.Value
}

// timerQueue runs callbacks on a virtual clock: nothing sleeps, callbacks
// fire in due order and ties keep scheduling order.
type timerQueue struct {
	clock  int64
	nextID int64
	items  []timer
}

func (q *timerQueue) reserve() int64 {
	q.nextID++
	return q.nextID
}

func (q *timerQueue) push(fn goja.Callable, delay int64, args []goja.Value) int64 {
	switch {
	case delay < 0:
		delay = 0
	case delay > maxTimerDelay:
		delay = maxTimerDelay
	}
	id := q.reserve()
	q.items = append(q.items, timer{id: id, due: q.clock + delay, fn: fn, args: args})
	return id
}

func (q *timerQueue) cancel(id int64) {
	for i, t := range q.items {
		if t.id == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// pop removes the earliest timer and advances the clock to it.
func (q *timerQueue) pop() (timer, bool) {
	if len(q.items) == 0 {
		return timer{}, false
	}
	best := 0
	for i, t := range q.items[1:] {
		if t.due < q.items[best].due {
			best = i + 1
		}
	}
	t := q.items[best]
	q.items = append(q.items[:best], q.items[best+1:]...)
	q.clock = t.due
	return t, true
}

func (q *timerQueue) len() int { return len(q.items) }

// timerDelay converts a setTimeout delay argument to ms. NaN and negative
// values mean zero.
func timerDelay(v goja.Value) int64 {
	d := v.ToFloat()
	switch {
	case math.IsNaN(d) || d < 0:
		return 0
	case d > maxTimerDelay:
		return maxTimerDelay
	}
	return int64(d)
}

// schedule implements setTimeout. String callbacks are not evaluated.
func (r *Runtime) schedule(callback goja.Value, delay int64, call []goja.Value) int64 {
	fn, ok := goja.AssertFunction(callback)
	if !ok {
		return r.timers.reserve()
	}
	var args []goja.Value
	if len(call) > 2 {
		args = append(args, call[2:]...)
	}
	return r.timers.push(fn, delay, args)
}

func (r *Runtime) drainTimers(ctx context.Context) {
	for r.timers.len() > 0 {
		if r.executed >= r.config.MaxTimers {
			r.logger.Debug("sandbox timer budget exhausted",
				zap.Int("executed", r.executed), zap.Int("pending", r.timers.len()))
			return
		}
		if ctx.Err() != nil {
			return
		}
		t, _ := r.timers.pop()
		r.executed++
		if !r.call(t.fn, "timer", t.args...) {
			return
		}
	}
}
