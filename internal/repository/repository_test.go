package repository

import (
	"strings"
	"testing"
)

func TestOrderClause(t *testing.T) {
	columns := map[string]string{
		"createdAt": "u.created_at",
		"email":     "u.email",
	}

	cases := []struct {
		sort string
		want string
	}{
		{"", "u.created_at DESC"},
		{"email", "u.email ASC"},
		{"-email", "u.email DESC"},
		{"-createdAt,email", "u.created_at DESC, u.email ASC"},
		{"password_hash", "u.created_at DESC"},
		{"-password_hash,email", "u.email ASC"},
	}
	for _, tc := range cases {
		if got := orderClause(tc.sort, columns, "u.created_at DESC"); got != tc.want {
			t.Errorf("orderClause(%q) = %q, want %q", tc.sort, got, tc.want)
		}
	}
}

func TestSelectQueryActivePredicate(t *testing.T) {
	withDefault := selectQuery("u.id = $1", false)
	if !strings.Contains(withDefault, "u.active = true") {
		t.Error("default query missing active predicate")
	}

	bypass := selectQuery("u.id = $1", true)
	if strings.Contains(bypass, "u.active = true") {
		t.Error("bypass query still filters on active")
	}
}
