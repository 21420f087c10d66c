// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/gatekeeper/pkg/pointer"
)

func TestNullable(t *testing.T) {
	assert.Nil(t, pointer.Nullable(""))
	assert.Nil(t, pointer.Nullable(time.Time{}))

	name := pointer.Nullable("Ada")
	if assert.NotNil(t, name) {
		assert.Equal(t, "Ada", *name)
	}
}

func TestVal(t *testing.T) {
	assert.Equal(t, "", pointer.Val[string](nil))
	assert.Equal(t, int64(4), pointer.Val(pointer.Nullable(int64(4))))
}
