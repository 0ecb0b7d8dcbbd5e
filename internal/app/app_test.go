package app

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCloseWithoutResources(t *testing.T) {
    a := &App{}
    assert.NoError(t, a.Close())
    // a second close is harmless
    assert.NoError(t, a.Close())
}
