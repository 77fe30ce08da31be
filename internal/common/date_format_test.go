package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISO8601(t *testing.T) {
	parsed, err := ParseISO8601("2021-07-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.July, 4, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseISO8601("")
	assert.Error(t, err)
	_, err = ParseISO8601("07/04/2021")
	assert.Error(t, err)
}

func TestDateFormats(t *testing.T) {
	d := time.Date(2021, time.July, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2021-07-04", FormatISO8601(d))
	assert.Equal(t, "Jul 04, 2021", FormatDisplay(d))
	assert.Equal(t, "July 4, 2021", FormatCaption(d))
}
