package main

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestSplitRoles(t *testing.T) {
    assert.Equal(t, []string{"VIEW_MOVIES", "RATE_MOVIES"}, splitRoles(" view_movies, ,RATE_MOVIES "))
    assert.Empty(t, splitRoles(""))
}
