// util/generic_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"slices"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](3)
	if rb.Size() != 0 {
		t.Errorf("expected empty buffer, got size %d", rb.Size())
	}

	rb.Add(1, 2)
	if got := rb.Slice(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("partial fill: got %v", got)
	}

	rb.Add(3, 4, 5)
	if rb.Size() != 3 {
		t.Errorf("expected size 3, got %d", rb.Size())
	}
	if got := rb.Slice(); !slices.Equal(got, []int{3, 4, 5}) {
		t.Errorf("wrapped: got %v, expected oldest-first [3 4 5]", got)
	}
	if rb.Get(0) != 3 || rb.Get(2) != 5 {
		t.Errorf("Get: got %d/%d", rb.Get(0), rb.Get(2))
	}
}

func TestSortedMapKeys(t *testing.T) {
	m := map[string]int{"stereoWarp": 1, "color": 2, "texture": 3}
	if got := SortedMapKeys(m); !slices.Equal(got, []string{"color", "stereoWarp", "texture"}) {
		t.Errorf("got %v", got)
	}
}

func TestReduceMap(t *testing.T) {
	m := map[int]int{1: 10, 2: 20}
	sum := ReduceMap(m, func(k, v, r int) int { return r + k*v }, 0)
	if sum != 50 {
		t.Errorf("expected 50, got %d", sum)
	}
}

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() || e.Err(errSentinel) != nil {
		t.Errorf("fresh ErrorLogger reports errors")
	}

	e.Push("required features")
	e.ErrorString("%s not available", "GL_ARB_multitexture")
	e.Pop()

	if !e.HaveErrors() {
		t.Fatalf("expected errors")
	}
	err := e.Err(errSentinel)
	if err == nil {
		t.Fatalf("expected wrapped error")
	}
	if err.Error() != "sentinel: required features: GL_ARB_multitexture not available" {
		t.Errorf("unexpected error string %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Errorf("sentinel not wrapped")
	}
}

type sentinel struct{}

func (sentinel) Error() string { return "sentinel" }

var errSentinel = sentinel{}
