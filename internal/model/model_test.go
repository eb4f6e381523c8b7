package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnType_IsA(t *testing.T) {
	tests := []struct {
		tag      ColumnType
		other    ColumnType
		expected bool
	}{
		{TypeSmallInteger, TypeInteger, true},
		{TypeBigInteger, TypeInteger, true},
		{TypeInteger, TypeSmallInteger, false},
		{TypeFloat, TypeNumeric, true},
		{TypeNumeric, TypeFloat, false},
		{TypeUnicodeText, TypeText, true},
		{TypeUnicodeText, TypeString, true},
		{TypeUnicode, TypeText, false},
		{TypeDate, TypeDateTime, false},
		{TypeBoolean, TypeBoolean, true},
		{ColumnType("json"), TypeString, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag)+"_"+string(tt.other), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tag.IsA(tt.other))
		})
	}
}

func TestColumnType_Known(t *testing.T) {
	assert.True(t, TypeLargeBinary.Known())
	assert.False(t, ColumnType("interval").Known())
	assert.False(t, ColumnType("").Known())

	parent, ok := TypeUnicodeText.Parent()
	assert.True(t, ok)
	assert.Equal(t, TypeText, parent)

	_, ok = TypeBoolean.Parent()
	assert.False(t, ok)
}

func TestTarget_Resolve(t *testing.T) {
	book := &Entity{Name: "BookModel"}

	name, err := TargetName("BookModel").Resolve()
	assert.NoError(t, err)
	assert.Equal(t, "BookModel", name)

	name, err = TargetEntity(book).Resolve()
	assert.NoError(t, err)
	assert.Equal(t, "BookModel", name)

	_, err = Target{}.Resolve()
	assert.True(t, errors.Is(err, ErrEmptyTarget))

	_, err = TargetEntity(&Entity{}).Resolve()
	assert.True(t, errors.Is(err, ErrEmptyTarget))
	assert.Equal(t, "<unresolved>", Target{}.String())
}
