package domain

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagSet_AddIsIdempotent(t *testing.T) {
	s := NewTagSet("keynote")
	s = s.Add("keynote")
	s = s.Add("design")
	s = s.Add("design")

	assert.Equal(t, TagSet{"keynote", "design"}, s)
}

func TestTagSet_AddIsCaseSensitive(t *testing.T) {
	s := NewTagSet("Design").Add("design")
	assert.Len(t, s, 2)
}

func TestTagSet_AddIgnoresEmpty(t *testing.T) {
	assert.Empty(t, TagSet(nil).Add(""))
}

func TestTagSet_NeverHoldsDuplicates(t *testing.T) {
	pool := []string{"a", "b", "c", "A", "design", ""}
	r := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		var s TagSet
		for range r.IntN(30) {
			s = s.Add(pool[r.IntN(len(pool))])
		}
		seen := map[string]bool{}
		for _, tag := range s {
			assert.False(t, seen[tag], "duplicate %q in %v", tag, s)
			seen[tag] = true
		}
	}
}

func TestTagSet_AddDoesNotAliasOriginal(t *testing.T) {
	base := make(TagSet, 1, 4)
	base[0] = "a"
	left := base.Add("b")
	right := base.Add("c")

	assert.Equal(t, TagSet{"a", "b"}, left)
	assert.Equal(t, TagSet{"a", "c"}, right)
}

func TestTagSet_Remove(t *testing.T) {
	s := NewTagSet("a", "b", "c").Remove("b").Remove("missing")
	assert.Equal(t, TagSet{"a", "c"}, s)
}

func TestTagSet_EqualIgnoresOrder(t *testing.T) {
	assert.True(t, NewTagSet("a", "b").Equal(NewTagSet("b", "a")))
	assert.False(t, NewTagSet("a", "b").Equal(NewTagSet("a")))
	assert.False(t, NewTagSet("a", "b").Equal(NewTagSet("a", "c")))
}

func TestTagSet_MarshalNilAsEmptyArray(t *testing.T) {
	data, err := json.Marshal(struct {
		Tags TagSet `json:"tags"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[]}`, string(data))
}

func TestStepOpacity(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{0.54, 0.5},
		{0.56, 0.6},
		{0.0, 0.1},
		{-3, 0.1},
		{0.95, 0.9},
		{12, 0.9},
		{0.1, 0.1},
		{0.9, 0.9},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, StepOpacity(tt.in), 1e-9, "StepOpacity(%v)", tt.in)
	}
}

func TestStepOpacity_AlwaysInRangeOnGrid(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	for range 1000 {
		in := r.Float64()*4 - 2
		got := StepOpacity(in)

		assert.GreaterOrEqual(t, got, MinOpacity)
		assert.LessOrEqual(t, got, MaxOpacity)
		assert.InDelta(t, 0, got*10-float64(int(got*10+0.5)), 1e-9, "%v is off the 0.1 grid", got)
	}
}

func TestArtifact_DisplayOpacity(t *testing.T) {
	assert.Equal(t, DefaultOpacity, (&Artifact{}).DisplayOpacity())
	assert.Equal(t, 0.3, (&Artifact{Opacity: 0.3}).DisplayOpacity())
	assert.Equal(t, 1.0, (&Artifact{Opacity: 1.0}).DisplayOpacity(), "stored out-of-range values display as-is")
}

func TestArtifact_OwnedBy(t *testing.T) {
	a := &Artifact{UserID: "usr-1"}
	assert.True(t, a.OwnedBy("usr-1"))
	assert.False(t, a.OwnedBy("usr-2"))
	assert.False(t, a.OwnedBy(""))
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString("   "))
	assert.Equal(t, "gpt-4o", *OptionalString(" gpt-4o "))
	assert.Equal(t, "", StringValue(nil))
}

func TestProfile_DisplayName(t *testing.T) {
	name := "hanako"
	blank := "  "

	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{"username wins", Profile{Username: &name, Email: "h@example.com"}, "hanako"},
		{"email local part", Profile{Email: "taro@example.com"}, "taro"},
		{"blank username falls back", Profile{Username: &blank, Email: "jiro@example.com"}, "jiro"},
		{"nothing", Profile{}, AnonymousName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.DisplayName())
		})
	}
}

func TestOwner_DisplayName(t *testing.T) {
	assert.Equal(t, "taro", Owner{Email: "taro@example.com"}.DisplayName())
	assert.Equal(t, AnonymousName, Owner{}.DisplayName())
}
