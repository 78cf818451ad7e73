package picker

import (
	"sync"

	"github.com/smallnest/weighted"
)

type (
	Choice[T any] struct {
		Item   T
		Weight int
	}

	// Picker hands out items in proportion to their weights.
	Picker[T any] interface {
		Next() (T, bool)
	}

	fixedPicker[T any] struct {
		item T
		ok   bool
	}

	weightedPicker[T any] struct {
		mu     sync.Mutex
		picker *weighted.SW
	}
)

func New[T any](choices []Choice[T]) Picker[T] {
	switch len(choices) {
	case 0:
		return &fixedPicker[T]{}
	case 1:
		return &fixedPicker[T]{item: choices[0].Item, ok: true}
	}

	picker := &weighted.SW{}
	for _, choice := range choices {
		picker.Add(choice.Item, choice.Weight)
	}
	return &weightedPicker[T]{picker: picker}
}

func (p *fixedPicker[T]) Next() (T, bool) {
	return p.item, p.ok
}

func (p *weightedPicker[T]) Next() (T, bool) {
	p.mu.Lock()
	next := p.picker.Next()
	p.mu.Unlock()

	item, ok := next.(T)
	return item, ok
}
