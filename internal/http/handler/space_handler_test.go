package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpaceCreateAndGet(t *testing.T) {
	f := newFixture(t)
	owner := f.identityToken(t, "owner")

	spaceID := createSpace(t, f, owner, "Morning Crew")

	w := f.do(t, request{method: "GET", path: "/spaces/" + spaceID, bearer: owner})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	space := decodeBody(t, w)["space"].(map[string]any)
	require.Equal(t, "Morning Crew", space["name"])
	require.Equal(t, "owner", space["createdBy"])

	members := space["members"].([]any)
	require.Len(t, members, 1)
	first := members[0].(map[string]any)
	require.Equal(t, "owner", first["uid"])
	require.Equal(t, "admin", first["role"])
	require.Equal(t, []any{"owner"}, space["memberUids"].([]any))
}

func TestSpaceGetRequiresMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.identityToken(t, "owner")
	outsider := f.identityToken(t, "outsider")

	spaceID := createSpace(t, f, owner, "Private")

	w := f.do(t, request{method: "GET", path: "/spaces/" + spaceID, bearer: outsider})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Not a member of this space", decodeBody(t, w)["error"])

	w = f.do(t, request{method: "GET", path: "/spaces/" + spaceID})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSpaceList(t *testing.T) {
	f := newFixture(t)
	owner := f.identityToken(t, "owner")
	other := f.identityToken(t, "other")

	createSpace(t, f, owner, "One")
	createSpace(t, f, owner, "Two")
	createSpace(t, f, other, "Theirs")

	w := f.do(t, request{method: "GET", path: "/spaces", bearer: owner})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["spaces"].([]any), 2)

	w = f.do(t, request{method: "GET", path: "/spaces", bearer: other})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["spaces"].([]any), 1)
}
