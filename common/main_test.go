package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmailAddress(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateEmailAddress("tata.usaha@smkn1.sch.id"))
	assert.Error(ValidateEmailAddress("not an address"))
	assert.Error(ValidateEmailAddress(""))
}
