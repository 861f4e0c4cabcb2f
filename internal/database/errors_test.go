package database

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unique index violation", &pq.Error{Code: "23505"}, true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"not null violation", &pq.Error{Code: "23502"}, false},
		{"non-postgres error", errors.New("connection refused"), false},
		{"nil error", nil, false},
	}

	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
