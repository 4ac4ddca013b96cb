package secretstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		full     string
		expected Coordinate
		wantErr  bool
	}{
		{
			name:     "simple",
			full:     "airbyte_workspace_123_secret_abc_v1",
			expected: Coordinate{Base: "airbyte_workspace_123_secret_abc", Version: 1},
		},
		{
			name:     "multi digit version",
			full:     "workspace_ws_secret_id_v42",
			expected: Coordinate{Base: "workspace_ws_secret_id", Version: 42},
		},
		{
			name: "uuid base",
			full: "workspace_e0eb0554-ffe0-4e9c-9dc0-ed7f52023eb2_secret_9eba44d8-51e7-48f1-bde2-619af0e42c22_v3",
			expected: Coordinate{
				Base:    "workspace_e0eb0554-ffe0-4e9c-9dc0-ed7f52023eb2_secret_9eba44d8-51e7-48f1-bde2-619af0e42c22",
				Version: 3,
			},
		},
		{name: "no separator", full: "workspace_secret", wantErr: true},
		{name: "two separators", full: "a_vb_v1", wantErr: true},
		{name: "non numeric version", full: "base_vX", wantErr: true},
		{name: "zero version", full: "base_v0", wantErr: true},
		{name: "negative version", full: "base_v-1", wantErr: true},
		{name: "empty base", full: "_v1", wantErr: true},
		{name: "illegal character", full: "base/with/slash_v1", wantErr: true},
		{name: "empty", full: "", wantErr: true},
		{name: "leading zero version", full: "abc_v01", wantErr: true},
		{name: "signed version", full: "abc_v+1", wantErr: true},
		{name: "empty version", full: "abc_v", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.full)
			if tt.wantErr {
				require.Error(t, err)
				var coordErr *CoordinateError
				assert.True(t, errors.As(err, &coordErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.full, got.Full())
		})
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	bases := []string{"a", "A-b_c", "workspace_x_secret_y", strings.Repeat("z", 200)}
	for _, base := range bases {
		for _, version := range []int{1, 2, 9, 10, 999} {
			c, err := NewCoordinate(base, version)
			require.NoError(t, err)

			parsed, err := ParseCoordinate(c.Full())
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
		}
	}
}

func TestNewCoordinateValidation(t *testing.T) {
	_, err := NewCoordinate("has_v_inside", 1)
	assert.Error(t, err, "base containing the separator cannot be parsed back")

	_, err = NewCoordinate(strings.Repeat("a", MaxCoordinateLength-3), 1)
	assert.NoError(t, err)

	_, err = NewCoordinate(strings.Repeat("a", MaxCoordinateLength-2), 1)
	assert.Error(t, err)

	_, err = NewCoordinate("ok", 0)
	assert.Error(t, err)
}

func TestNewBase(t *testing.T) {
	ws := uuid.MustParse("e0eb0554-ffe0-4e9c-9dc0-ed7f52023eb2")
	id := uuid.MustParse("9eba44d8-51e7-48f1-bde2-619af0e42c22")

	base := NewBase(WorkspacePrefix, ws, id)
	assert.Equal(t, "workspace_e0eb0554-ffe0-4e9c-9dc0-ed7f52023eb2_secret_9eba44d8-51e7-48f1-bde2-619af0e42c22", base)

	for _, prefix := range []string{WorkspacePrefix, ServiceAccountJSONPrefix, ServiceAccountHMACPrefix} {
		c, err := NewCoordinate(NewBase(prefix, ws, id), 1)
		require.NoError(t, err, prefix)
		assert.LessOrEqual(t, len(c.Full()), MaxCoordinateLength)
	}
}

func TestCoordinateNext(t *testing.T) {
	c := MustParseCoordinate("base_v1")
	next := c.Next()

	assert.Equal(t, "base_v2", next.Full())
	assert.Equal(t, "base_v1", c.Full())
	assert.NotEqual(t, c, next)
}

func TestMapReader(t *testing.T) {
	c := MustParseCoordinate("base_v1")
	r := MapReader{c: "hunter2"}

	payload, found, err := r.Read(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hunter2", payload)

	_, found, err = r.Read(context.Background(), c.Next())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("main", "read", MustParseCoordinate("base_v1"), cause)

	assert.Equal(t, "secret store main: read base_v1 failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	noCoord := NewStoreError("main", "validate", Coordinate{}, cause)
	assert.Equal(t, "secret store main: validate failed: connection refused", noCoord.Error())
}

func TestErrorTypes(t *testing.T) {
	assert.Equal(t, "authentication failed for store vault: token expired",
		AuthError{Store: "vault", Message: "token expired"}.Error())
	assert.Equal(t, "validation failed: missing dsn",
		ValidationError{Message: "missing dsn"}.Error())
	assert.Equal(t, "validation failed for store sql: missing dsn",
		ValidationError{Store: "sql", Message: "missing dsn"}.Error())
}
