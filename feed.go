/**
 * Copyright 2022 kmeaw
 *
 * Licensed under the GNU Affero General Public License (AGPL).
 *
 * This program is free software: you can redistribute it and/or modify it
 * under the terms of the GNU Affero General Public License as published by the
 * Free Software Foundation, version 3 of the License.
 *
 * This program is distributed in the hope that it will be useful, but WITHOUT
 * ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
 * FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
 * for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package main

import (
	"sync"
	"time"
)

// Feed fans finished jobs out to websocket subscribers.
type Feed struct {
	lastEvent *JobEvent
	mu        *sync.Mutex
	cv        *sync.Cond

	SendTimeout time.Duration
}

type JobEvent struct {
	Kind      string `json:"kind"`
	Format    string `json:"format,omitempty"`
	InBytes   int64  `json:"in_bytes"`
	OutBytes  int64  `json:"out_bytes"`
	BitsSaved int64  `json:"bits_saved,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
}

func NewFeed() *Feed {
	f := &Feed{SendTimeout: time.Second}
	f.mu = new(sync.Mutex)
	f.cv = sync.NewCond(f.mu)
	return f
}

func (f *Feed) Broadcast(event JobEvent) {
	f.mu.Lock()
	f.lastEvent = &event
	f.mu.Unlock()

	f.cv.Broadcast()
}

// Subscribe returns a channel of events broadcast after the call. The
// channel is closed once a receiver leaves an event unread for SendTimeout.
func (f *Feed) Subscribe() <-chan JobEvent {
	ch := make(chan JobEvent)

	f.mu.Lock()
	last_event := f.lastEvent
	f.mu.Unlock()

	go func(ch chan JobEvent) {
		defer close(ch)

		running := true
		for running {
			f.mu.Lock()
			var event *JobEvent
			for {
				event = f.lastEvent
				if event != nil && event != last_event {
					break
				}
				f.cv.Wait()
			}
			f.mu.Unlock()

			last_event = event
			t := time.NewTimer(f.SendTimeout)
			select {
			case <-t.C:
				// timed out
				running = false
			case ch <- *event:
				// done
			}
			t.Stop()
		}
	}(ch)
	return ch
}

// vim: ai:ts=8:sw=8:noet:syntax=go
