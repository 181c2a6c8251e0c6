package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberSet_UpsertKeepsOrderAndDedupes(t *testing.T) {
	var s MemberSet
	s.Upsert(Member{UserID: "a", Role: RoleHost, ConnectionID: "c1"})
	s.Upsert(Member{UserID: "b", Role: RoleViewer, ConnectionID: "c2"})
	s.Upsert(Member{UserID: "a", Role: RoleHost, ConnectionID: "c9"})

	require.Equal(t, 2, s.Len())

	members := s.Members()
	assert.Equal(t, UserID("a"), members[0].UserID)
	assert.Equal(t, ConnectionID("c9"), members[0].ConnectionID)
	assert.Equal(t, UserID("b"), members[1].UserID)
}

func TestMemberSet_Remove(t *testing.T) {
	s := NewMemberSet(
		Member{UserID: "a", Role: RoleHost},
		Member{UserID: "b", Role: RoleViewer},
	)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 1, s.Len())

	_, found := s.Get("a")
	assert.False(t, found)
	m, found := s.Get("b")
	require.True(t, found)
	assert.Equal(t, RoleViewer, m.Role)
}

func TestMemberSet_JSONPairEncoding(t *testing.T) {
	s := NewMemberSet(
		Member{UserID: "host", Role: RoleHost, ConnectionID: "c1"},
		Member{UserID: "viewer", Role: RoleViewer, ConnectionID: "c2"},
	)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	// Encoded as [[id, member], ...] pairs, insertion order preserved.
	var pairs [][2]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &pairs))
	require.Len(t, pairs, 2)

	var firstID string
	require.NoError(t, json.Unmarshal(pairs[0][0], &firstID))
	assert.Equal(t, "host", firstID)

	var decoded MemberSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 2, decoded.Len())
	assert.Equal(t, s.Members(), decoded.Members())
}

func TestMemberSet_UnmarshalRejectsGarbage(t *testing.T) {
	var s MemberSet
	assert.Error(t, json.Unmarshal([]byte(`{"not":"pairs"}`), &s))
}
