package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone(" +919999999999 ")
	assert.NoError(t, err)
	assert.Equal(t, "+919999999999", got)

	got, err = NormalizePhone("99999999")
	assert.NoError(t, err)
	assert.Equal(t, "99999999", got)

	for _, bad := range []string{"", "1234567", "12345678901234567", "99-999", "abc12345", "++9999999999"} {
		_, err := NormalizePhone(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateCode(t *testing.T) {
	assert.NoError(t, ValidateCode("123456"))
	for _, bad := range []string{"", "12345", "1234567", "12345a", "12 456"} {
		assert.Error(t, ValidateCode(bad), bad)
	}
}

func TestValidateProfile(t *testing.T) {
	valid := Profile{
		FullName:    "Asha Traders",
		ShopAddress: "12 Market Road, Pune",
		TaxID:       "22AAAAA0000A1Z5",
		PayoutID:    "asha@upi",
	}
	assert.NoError(t, ValidateProfile(valid))

	short := valid
	short.FullName = "ab"
	assert.Error(t, ValidateProfile(short))

	badAddr := valid
	badAddr.ShopAddress = "x"
	assert.Error(t, ValidateProfile(badAddr))

	badTax := valid
	badTax.TaxID = "NOTAGST"
	assert.Error(t, ValidateProfile(badTax))

	badPayout := valid
	badPayout.PayoutID = "missing-handle"
	assert.Error(t, ValidateProfile(badPayout))
}

func TestValidateSecret(t *testing.T) {
	assert.NoError(t, ValidateSecret("abc123"))
	assert.Error(t, ValidateSecret("abc12"))
}
