package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{name: "postgres", dsn: "postgres://u:p@h:5432/d?sslmode=disable", want: "pgx5://u:p@h:5432/d?sslmode=disable"},
		{name: "postgresql", dsn: "postgresql://h/d", want: "pgx5://h/d"},
		{name: "already_pgx5", dsn: "pgx5://h/d", want: "pgx5://h/d"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MigrateURL(tt.dsn))
		})
	}
}
