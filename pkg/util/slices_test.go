package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameElements(t *testing.T) {
	assert.True(t, SameElements([]int{1, 2, 3}, []int{3, 1, 2}))
	assert.True(t, SameElements([]int{}, []int{}))
	assert.False(t, SameElements([]int{1, 1, 2}, []int{1, 2, 2}))
	assert.False(t, SameElements([]int{1, 2}, []int{1, 2, 3}))
	assert.True(t, SameElements([]string{"a", "b"}, []string{"b", "a"}))
}
