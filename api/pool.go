package api

import "time"

// tryEnqueue hands a job to the workers, waiting at most the handoff timeout
// for buffer space. It reports false once the outbox is shut down.
func (o *Outbox) tryEnqueue(job outboxJob) bool {
	if o.jobs == nil {
		return false
	}

	if ok, closed := trySendNonBlocking(o.jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if o.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(o.cfg.HandoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(o.jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan outboxJob, job outboxJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan outboxJob, job outboxJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}
