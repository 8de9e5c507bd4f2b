package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/guardian/model"
)

func TestSubjectID(t *testing.T) {
	t.Run("Construct", func(t *testing.T) {
		subject, err := model.NewSubjectID(model.SubjectTypeUser, "bob")
		require.NoError(t, err)
		assert.Equal(t, model.SubjectTypeUser, subject.Type)
		assert.Equal(t, "bob", subject.ID)
	})

	t.Run("RejectsEmptyType", func(t *testing.T) {
		_, err := model.NewSubjectID("", "bob")
		assert.Error(t, err)
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		_, err := model.NewSubjectID(model.SubjectTypeGroup, "")
		assert.Error(t, err)
	})

	t.Run("Equality", func(t *testing.T) {
		assert.Equal(t, model.UserSubject("bob"), model.UserSubject("bob"))
		assert.NotEqual(t, model.UserSubject("bob"), model.GroupSubject("bob"))
		assert.NotEqual(t, model.UserSubject("bob"), model.UserSubject("alice"))
	})

	t.Run("AnonymousSentinel", func(t *testing.T) {
		assert.Equal(t, model.SubjectTypeAnonymous, model.AnonymousUser.Type)
		assert.NotEmpty(t, model.AnonymousUser.ID)
	})
}

func TestObjectID(t *testing.T) {
	t.Run("Construct", func(t *testing.T) {
		object, err := model.NewObjectID("STREAM", "s1")
		require.NoError(t, err)
		assert.Equal(t, "STREAM", object.Type)
		assert.Equal(t, "s1", object.ID)
	})

	t.Run("RejectsEmptyFields", func(t *testing.T) {
		_, err := model.NewObjectID("", "s1")
		assert.Error(t, err)
		_, err = model.NewObjectID("STREAM", "")
		assert.Error(t, err)
	})
}

func TestACLEntry(t *testing.T) {
	object, _ := model.NewObjectID("STREAM", "s1")
	subject := model.UserSubject("bob")

	t.Run("Construct", func(t *testing.T) {
		entry, err := model.NewACLEntry(object, subject, "WRITE")
		require.NoError(t, err)
		assert.Equal(t, "WRITE", entry.Permission)
	})

	t.Run("RejectsEmptyPermission", func(t *testing.T) {
		_, err := model.NewACLEntry(object, subject, "")
		assert.Error(t, err)
	})

	t.Run("WireRepresentation", func(t *testing.T) {
		entry, err := model.NewACLEntry(object, subject, "WRITE")
		require.NoError(t, err)

		raw, err := json.Marshal(entry)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"objectId": {"type": "STREAM", "id": "s1"},
			"subjectId": {"type": "USER", "id": "bob"},
			"permission": "WRITE"
		}`, string(raw))
	})
}

func TestAuthorizationContext(t *testing.T) {
	t.Run("DefaultsToAnonymous", func(t *testing.T) {
		authCtx := model.NewAuthorizationContext()
		assert.Equal(t, model.AnonymousUser, authCtx.CurrentUser())
		assert.NotNil(t, authCtx.CurrentUsersGroups())
		assert.Empty(t, authCtx.CurrentUsersGroups())
	})

	t.Run("SetUserResetsGroups", func(t *testing.T) {
		authCtx := model.NewAuthorizationContext()
		authCtx.Set(model.UserSubject("bob"), []model.SubjectID{model.GroupSubject("ops")})
		assert.Len(t, authCtx.CurrentUsersGroups(), 1)

		authCtx.SetUser(model.UserSubject("alice"))
		assert.Equal(t, model.UserSubject("alice"), authCtx.CurrentUser())
		assert.Empty(t, authCtx.CurrentUsersGroups())
	})

	t.Run("NeverNilUser", func(t *testing.T) {
		authCtx := model.NewAuthorizationContext()
		authCtx.Set(model.SubjectID{}, nil)
		assert.Equal(t, model.AnonymousUser, authCtx.CurrentUser())
		assert.NotNil(t, authCtx.CurrentUsersGroups())
	})
}
