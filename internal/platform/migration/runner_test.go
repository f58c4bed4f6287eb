// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestConvertToPgx5DSN verifies every accepted scheme ends up as pgx5://.
*/
func TestConvertToPgx5DSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/sindicapp":   "pgx5://u:p@db:5432/sindicapp",
		"postgresql://u:p@db:5432/sindicapp": "pgx5://u:p@db:5432/sindicapp",
		"pgx5://u:p@db:5432/sindicapp":       "pgx5://u:p@db:5432/sindicapp",
		"host=db user=u":                     "host=db user=u",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, convertToPgx5DSN(input), input)
	}
}
