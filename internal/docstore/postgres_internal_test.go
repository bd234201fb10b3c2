package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListSQL(t *testing.T) {
	tests := []struct {
		name     string
		q        Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "whole collection",
			q:        Collection("orders"),
			wantSQL:  "SELECT id::text, data, created_at, updated_at FROM documents WHERE collection = $1 ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"orders"},
		},
		{
			name:     "equality filter",
			q:        Collection("orders").Where("userId", Equal, "u1"),
			wantSQL:  "SELECT id::text, data, created_at, updated_at FROM documents WHERE collection = $1 AND data @> $2::jsonb AND data->$3::text IN ($4::jsonb) ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"orders", `{"userId":"u1"}`, "userId", `"u1"`},
		},
		{
			name:     "array equality is exact",
			q:        Collection("orders").Where("tags", Equal, []string{"vip"}),
			wantSQL:  "SELECT id::text, data, created_at, updated_at FROM documents WHERE collection = $1 AND data @> $2::jsonb AND data->$3::text IN ($4::jsonb) ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"orders", `{"tags":["vip"]}`, "tags", `["vip"]`},
		},
		{
			name: "in filter ordered and limited",
			q: Collection("orders").
				Where("status", In, []string{"Served", "Ready to Pay"}).
				OrderBy("createdAt", true).
				Limit(5),
			wantSQL: "SELECT id::text, data, created_at, updated_at FROM documents WHERE collection = $1" +
				" AND (data @> $2::jsonb OR data @> $3::jsonb)" +
				" AND data->$4::text IN ($5::jsonb, $6::jsonb)" +
				" ORDER BY data->$7::text DESC, created_at ASC, id ASC LIMIT $8",
			wantArgs: []any{"orders", `{"status":"Served"}`, `{"status":"Ready to Pay"}`, "status", `"Served"`, `"Ready to Pay"`, "createdAt", 5},
		},
		{
			name:     "empty in list",
			q:        Collection("orders").Where("status", In, []string{}),
			wantSQL:  "SELECT id::text, data, created_at, updated_at FROM documents WHERE collection = $1 AND FALSE ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"orders"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildListSQL(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
