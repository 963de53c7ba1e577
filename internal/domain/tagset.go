package domain

import "encoding/json"

// TagSet is an ordered list of tags without duplicates. Order is insertion
// order and carries no meaning; comparisons are case-sensitive.
type TagSet []string

// NewTagSet builds a set from tags, dropping blanks and duplicates.
func NewTagSet(tags ...string) TagSet {
	var s TagSet
	for _, t := range tags {
		s = s.Add(t)
	}
	return s
}

// Contains reports whether tag is present (exact match).
func (s TagSet) Contains(tag string) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

// Add returns the set with tag appended. Adding an empty or present tag is a no-op.
func (s TagSet) Add(tag string) TagSet {
	if tag == "" || s.Contains(tag) {
		return s
	}
	out := make(TagSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, tag)
}

// Remove returns the set without tag.
func (s TagSet) Remove(tag string) TagSet {
	out := make(TagSet, 0, len(s))
	for _, t := range s {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

// Equal compares as sets.
func (s TagSet) Equal(other TagSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s TagSet) Clone() TagSet {
	out := make(TagSet, len(s))
	copy(out, s)
	return out
}

// MarshalJSON encodes nil as an empty array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}
