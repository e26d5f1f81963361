package mysqltest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "TestX_sub_case", sanitizeName("TestX/sub-case"))
	assert.Len(t, sanitizeName("TestAVeryLongNameThatKeepsGoingAndGoingAndGoing"), 36)
}

func TestIsValidName(t *testing.T) {
	assert.True(t, isValidName("daogen_test_1"))
	assert.False(t, isValidName(""))
	assert.False(t, isValidName("x`; DROP"))
}

func TestQuoteUserHost(t *testing.T) {
	assert.Equal(t, `'o''brien'@'%'`, quoteUserHost("o'brien", "%"))
}
