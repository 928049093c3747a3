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

// Package pqueue implements a priority queue that hands out items in
// non-decreasing priority order. Items of equal priority leave the queue in
// the order they were inserted.
package pqueue

type qnode[T any] struct {
	item T
	pri  uint64
	next *qnode[T]
}

// Queue is a singly linked list kept sorted by priority.
// The zero value is an empty queue ready to use.
type Queue[T any] struct {
	first *qnode[T]
	size  int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Insert places item behind every queued item whose priority is less than
// or equal to pri.
func (q *Queue[T]) Insert(item T, pri uint64) {
	n := &qnode[T]{item: item, pri: pri}

	if q.first == nil || pri < q.first.pri {
		n.next = q.first
		q.first = n
		q.size++
		return
	}

	cur := q.first
	for cur.next != nil && pri >= cur.next.pri {
		cur = cur.next
	}
	n.next = cur.next
	cur.next = n
	q.size++
}

// RemoveMin pops the first item. ok is false if the queue is empty.
func (q *Queue[T]) RemoveMin() (item T, pri uint64, ok bool) {
	if q.first == nil {
		return
	}

	n := q.first
	q.first = n.next
	q.size--
	return n.item, n.pri, true
}

func (q *Queue[T]) PeekMin() (item T, pri uint64, ok bool) {
	if q.first == nil {
		return
	}
	return q.first.item, q.first.pri, true
}

func (q *Queue[T]) Len() int {
	return q.size
}

func (q *Queue[T]) Clear() {
	q.first = nil
	q.size = 0
}

// vim: ai:ts=8:sw=8:noet:syntax=go
