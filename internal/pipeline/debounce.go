package pipeline

import (
	"time"

	"mergesync/internal/model"
)

// Coalesce batches events until the stream has been quiet for delay, then
// emits the batch. Pending events are flushed when inCh closes.
func Coalesce(inCh <-chan model.FileEvent, delay time.Duration) <-chan []model.FileEvent {
	outCh := make(chan []model.FileEvent, 1)

	go func() {
		defer close(outCh)

		var (
			pending []model.FileEvent
			timer   *time.Timer
			fire    <-chan time.Time
		)

		for {
			select {
			case event, ok := <-inCh:
				if !ok {
					if timer != nil {
						timer.Stop()
					}
					if len(pending) > 0 {
						outCh <- pending
					}
					return
				}

				pending = append(pending, event)
				if timer == nil {
					timer = time.NewTimer(delay)
				} else {
					timer.Reset(delay)
				}
				fire = timer.C

			case <-fire:
				outCh <- pending
				pending = nil
				fire = nil
			}
		}
	}()

	return outCh
}

// Filter drops events whose path the keep function rejects.
func Filter(inCh <-chan model.FileEvent, keep func(model.FileEvent) bool) <-chan model.FileEvent {
	outCh := make(chan model.FileEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if !keep(event) {
				continue
			}
			outCh <- event
		}
	}()

	return outCh
}
