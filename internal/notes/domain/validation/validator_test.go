package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gratitudeboard/internal/notes/domain/validation"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		input         validation.Submission
		expected      validation.Canonical
		expectedField string
	}{
		{
			name:  "normalizes email and items",
			input: validation.Submission{Name: "Ann", Email: "Ann@X.com ", Text: "x\ny"},
			expected: validation.Canonical{
				Name:  "Ann",
				Email: "ann@x.com",
				Items: []string{"x", "y"},
			},
		},
		{
			name:  "drops blank lines and trims",
			input: validation.Submission{Name: "  Bob ", Email: "bob@example.org", Text: "a\n\nb  \n"},
			expected: validation.Canonical{
				Name:  "Bob",
				Email: "bob@example.org",
				Items: []string{"a", "b"},
			},
		},
		{
			name:  "handles windows and old mac line endings",
			input: validation.Submission{Name: "C", Email: "c@d.io", Text: "one\r\ntwo\rthree"},
			expected: validation.Canonical{
				Name:  "C",
				Email: "c@d.io",
				Items: []string{"one", "two", "three"},
			},
		},
		{
			name:          "blank name",
			input:         validation.Submission{Name: "   ", Email: "a@b.co", Text: "x"},
			expectedField: validation.FieldName,
		},
		{
			name:          "email without domain dot",
			input:         validation.Submission{Name: "A", Email: "a@b", Text: "x"},
			expectedField: validation.FieldEmail,
		},
		{
			name:          "email with inner space",
			input:         validation.Submission{Name: "A", Email: "a b@c.de", Text: "x"},
			expectedField: validation.FieldEmail,
		},
		{
			name:          "only blank lines",
			input:         validation.Submission{Name: "A", Email: "a@b.co", Text: "\n  \n\t\n"},
			expectedField: validation.FieldText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validation.Validate(tt.input)

			if tt.expectedField != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, validation.ErrInvalidInput)

				var vErr *validation.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.expectedField, vErr.Field)
				assert.NotEmpty(t, vErr.Reason)
				assert.Empty(t, got.Items, "no partial result on failure")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSplitItemsLengthBoundary(t *testing.T) {
	t.Run("exactly 150 characters accepted", func(t *testing.T) {
		items, err := validation.SplitItems(strings.Repeat("a", validation.MaxItemLength))
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("151 characters rejected", func(t *testing.T) {
		_, err := validation.SplitItems(strings.Repeat("a", validation.MaxItemLength+1))
		require.ErrorIs(t, err, validation.ErrInvalidInput)
		assert.Equal(t, validation.ReasonItemTooLong, err.Error())
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		items, err := validation.SplitItems(strings.Repeat("ё", validation.MaxItemLength))
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("surrounding whitespace does not count", func(t *testing.T) {
		_, err := validation.SplitItems("   " + strings.Repeat("a", validation.MaxItemLength) + "   ")
		assert.NoError(t, err)
	})
}
