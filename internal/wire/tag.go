package wire

import "fmt"

// TagAllocator hands out correlation tags T001..T999, then the literal
// sentinel "TOOO" for the 1000th request, then wraps back to T001
// (spec.md §4.1, §8.1's tag wraparound law). Grounded on adbb/link.py's
// tag cycling.
type TagAllocator struct {
	prefix string
	next   int
}

// NewTagAllocator returns an allocator using prefix (default "T" per
// config.TagPrefix) for the tags it hands out.
func NewTagAllocator(prefix string) *TagAllocator {
	if prefix == "" {
		prefix = "T"
	}
	return &TagAllocator{prefix: prefix, next: 1}
}

// Next returns the next tag in the cycle: "T001" .. "T999", then
// "TOOO" for the 1000th call, then "T001" again for the 1001st.
func (a *TagAllocator) Next() string {
	if a.next > 1000 {
		a.next = 1
	}
	if a.next == 1000 {
		a.next++
		return a.prefix + "OOO"
	}
	tag := fmt.Sprintf("%s%03d", a.prefix, a.next)
	a.next++
	return tag
}
