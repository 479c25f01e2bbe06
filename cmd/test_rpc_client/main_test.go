package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckIDBudget(t *testing.T) {
	assert.NoError(t, checkIDBudget(20000, 20), "default flags fit the id space")
	assert.NoError(t, checkIDBudget(24990, 20))

	assert.ErrorContains(t, checkIDBudget(100000, 20), "need 200020 transaction ids")
	assert.Error(t, checkIDBudget(25000, 20))
	assert.ErrorContains(t, checkIDBudget(10, 1), "at least 2 accounts")
}
