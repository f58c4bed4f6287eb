// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EduNauta/sindicapp/pkg/uuid"
)

/*
TestNew verifies generated ids are valid and ordered.
*/
func TestNew(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	assert.True(t, uuid.IsValid(first))
	assert.NotEqual(t, first, second)
	assert.Equal(t, byte('7'), first[14])
}

/*
TestIsValid rejects non-canonical forms.
*/
func TestIsValid(t *testing.T) {
	assert.True(t, uuid.IsValid("01900000-0000-7000-8000-000000000001"))
	assert.False(t, uuid.IsValid(""))
	assert.False(t, uuid.IsValid("not-a-uuid"))
	assert.False(t, uuid.IsValid("{01900000-0000-7000-8000-000000000001}"))
	assert.False(t, uuid.IsValid("urn:uuid:01900000-0000-7000-8000-000000000001"))
}
