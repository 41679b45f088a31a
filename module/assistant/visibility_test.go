package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisible(t *testing.T) {
	cases := []struct {
		route string
		role  string
		want  bool
	}{
		{"/", "student", true},
		{"/items/42", "student", true},
		{"/login", "student", false},
		{"/register", "student", false},
		{"/forgot-password", "student", false},
		{"/reset-password/token123", "student", false},
		{"/admin", "student", false},
		{"/admin/reports", "student", false},
		{"/", "admin", false},
		{"/items/42", "Admin", false},
		{"/loginhistory", "student", true},
	}
	for _, tc := range cases {
		t.Run(tc.route+" as "+tc.role, func(t *testing.T) {
			assert.Equal(t, tc.want, Visible(tc.route, tc.role))
		})
	}
}
