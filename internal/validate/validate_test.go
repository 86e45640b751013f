package validate

import (
	"testing"

	"greenloop/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactInput struct {
	ContactNumber string `validate:"required,phmobile"`
}

func TestMobileNumber(t *testing.T) {
	v := New()

	valid := []string{"09171234567", "09991234567", "+639171234567"}
	for _, number := range valid {
		assert.NoErrorf(t, Struct(v, contactInput{ContactNumber: number}), "number %s", number)
	}

	invalid := []string{
		"",
		"0917123456",     // one digit short
		"091712345678",   // one digit long
		"+449171234567",  // wrong country code
		"9171234567",     // missing leading 0
		"09-1712-34567",  // separators
		"0917 1234 567",  // spaces
		"partly09171234", // embedded
	}
	for _, number := range invalid {
		err := Struct(v, contactInput{ContactNumber: number})
		require.Errorf(t, err, "number %q", number)
		assert.Equal(t, types.KindValidation, types.KindOf(err))
	}
}

func TestStruct_FieldNameInMessage(t *testing.T) {
	v := New()

	err := Struct(v, contactInput{ContactNumber: "12345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact_number")
}
