package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Cardinality_Satisfied(t *testing.T) {
	tests := []struct {
		name  string
		card  Cardinality
		count int
		want  bool
	}{
		{"exactly_one with zero", ExactlyOne, 0, false},
		{"exactly_one with one", ExactlyOne, 1, true},
		{"exactly_one with two", ExactlyOne, 2, false},
		{"at_most_one with zero", AtMostOne, 0, true},
		{"at_most_one with one", AtMostOne, 1, true},
		{"at_most_one with two", AtMostOne, 2, false},
		{"at_least_one with zero", AtLeastOne, 0, false},
		{"at_least_one with one", AtLeastOne, 1, true},
		{"at_least_one with many", AtLeastOne, 5, true},
		{"any with zero", Any, 0, true},
		{"any with many", Any, 5, true},
		{"unknown cardinality", Cardinality("bogus"), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.card.Satisfied(tt.count))
		})
	}
}
