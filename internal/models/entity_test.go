package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_ID(t *testing.T) {
	tests := []struct {
		entity   Entity
		name     string
		expected string
	}{
		{
			name:     "string id",
			entity:   Entity{"id": "1", "first_name": "Jane"},
			expected: "1",
		},
		{
			name:     "missing id",
			entity:   Entity{"first_name": "Jane"},
			expected: "",
		},
		{
			name:     "non-string id",
			entity:   Entity{"id": 42},
			expected: "",
		},
		{
			name:     "nil entity",
			entity:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entity.ID())
		})
	}
}

func TestEntity_NewerThan(t *testing.T) {
	older := Entity{"id": "1", "updated_at": "2024-01-01T10:00:00Z"}
	newer := Entity{"id": "1", "updated_at": "2024-01-02T10:00:00Z"}

	assert.True(t, newer.NewerThan(older))
	assert.False(t, older.NewerThan(newer))

	// Equal timestamps: neither is newer
	same := Entity{"id": "1", "updated_at": "2024-01-01T10:00:00Z"}
	assert.False(t, older.NewerThan(same))
	assert.False(t, same.NewerThan(older))
}

func TestEntity_Clone(t *testing.T) {
	original := Entity{"id": "1", "first_name": "Jane"}
	clone := original.Clone()

	require.NotNil(t, clone)
	assert.True(t, original.Equal(clone))

	// Mutating the clone must not touch the original
	clone["first_name"] = "Changed"
	assert.Equal(t, "Jane", original["first_name"])
}

func TestEntity_Clone_Nil(t *testing.T) {
	var e Entity
	assert.Nil(t, e.Clone())
}

func TestEntity_Merge(t *testing.T) {
	local := Entity{"id": "1", "first_name": "Local", "last_name": "Smith"}
	merged := local.Merge(Entity{"first_name": "Merged"})

	// Patch wins on overridden fields, local wins everywhere else
	assert.Equal(t, "Merged", merged["first_name"])
	assert.Equal(t, "Smith", merged["last_name"])

	// Merge must not mutate the receiver
	assert.Equal(t, "Local", local["first_name"])
}

func TestEntity_Equal(t *testing.T) {
	a := Entity{"id": "1", "count": 2}
	b := Entity{"id": "1", "count": 2}
	c := Entity{"id": "1", "count": 3}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Entity{"id": "1"}))
}
