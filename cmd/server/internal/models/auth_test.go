package models

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/internal/config"
)

func TestAuth(t *testing.T) {
	db := setupDB(t)

	tru := true
	fal := false
	clients := []config.Client{
		{
			ID:   uuid.New().String(),
			Note: "Key 0",
			APIKey: config.APIKey{
				Token: "abcdefg",
				Permissions: config.APIKeyPermissions{
					Intake:    fal,
					Screening: fal,
				},
				Active: &tru,
			},
		},
		{
			ID:   uuid.New().String(),
			Note: "Key 1",
			APIKey: config.APIKey{
				Token: "abcdefg",
				Permissions: config.APIKeyPermissions{
					Intake:    fal,
					Screening: fal,
				},
				Active: &tru,
			},
		},
		{
			ID:   uuid.New().String(),
			Note: "Key 2",
			APIKey: config.APIKey{
				Token: "abcdefg",
				Permissions: config.APIKeyPermissions{
					Intake:    fal,
					Screening: fal,
				},
				Active: &tru,
			},
		},
	}

	var err error

	t.Run("LoadManyNoPerms", func(t *testing.T) {
		err = LoadAPIKeysFromConfig(context.Background(), db, clients)
		require.NoError(t, err, "failed to upsert keys")
		checkKeys(t, db, clients, true, Permissions{})
	})

	t.Run("TokenIsHashed", func(t *testing.T) {
		m, err := ByID[Auth](context.Background(), db, uuid.MustParse(clients[0].ID))
		require.NoError(t, err, "failed to get key from db")

		assert.NotEqual(t, clients[0].APIKey.Token, m.Token)
		match, err := argon2id.ComparePasswordAndHash(clients[0].APIKey.Token, m.Token)
		require.NoError(t, err)
		assert.True(t, match, "stored hash does not match token")
	})

	t.Run("LoadManyLessOne", func(t *testing.T) {
		modifiedClients := make([]config.Client, len(clients))
		copy(modifiedClients, clients)

		err = LoadAPIKeysFromConfig(context.Background(), db, modifiedClients[1:])
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modifiedClients[1:], true, Permissions{})
		checkKeys(t, db, modifiedClients[0:1], false, Permissions{})
	})

	t.Run("LoadManyMarkOneInactive", func(t *testing.T) {
		modifiedClients := make([]config.Client, len(clients))
		copy(modifiedClients, clients)

		modifiedClients[0].APIKey.Active = &fal

		err = LoadAPIKeysFromConfig(context.Background(), db, modifiedClients)
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modifiedClients[1:], true, Permissions{})
		checkKeys(t, db, modifiedClients[0:1], false, Permissions{})
	})

	t.Run("LoadManyAddPermissions", func(t *testing.T) {
		modifiedClients := make([]config.Client, len(clients))
		copy(modifiedClients, clients)

		modifiedClients[0].APIKey.Permissions = config.APIKeyPermissions{Intake: true}

		err = LoadAPIKeysFromConfig(context.Background(), db, modifiedClients)
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modifiedClients[0:1], true, Permissions{Intake: true})
		checkKeys(t, db, modifiedClients[1:], true, Permissions{})
	})

	t.Run("LoadManyAddPermissionsAndRemove", func(t *testing.T) {
		modifiedClients := make([]config.Client, len(clients))
		copy(modifiedClients, clients)

		modifiedClients[0].APIKey.Permissions = config.APIKeyPermissions{Screening: true}

		err = LoadAPIKeysFromConfig(context.Background(), db, modifiedClients)
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modifiedClients[0:1], true, Permissions{Screening: true})
		checkKeys(t, db, modifiedClients[1:], true, Permissions{})

		modifiedClients[0].APIKey.Permissions = config.APIKeyPermissions{FormManagement: true}

		err = LoadAPIKeysFromConfig(context.Background(), db, modifiedClients)
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modifiedClients[0:1], true, Permissions{FormManagement: true})
		checkKeys(t, db, modifiedClients[1:], true, Permissions{})
	})

	t.Run("InvalidClientID", func(t *testing.T) {
		bad := []config.Client{{ID: "not-a-uuid", Note: "bad", APIKey: config.APIKey{Token: "x", Active: &tru}}}

		err := LoadAPIKeysFromConfig(context.Background(), db, bad)
		require.Error(t, err)
	})
}

func checkKeys(t *testing.T, db *gorm.DB, clients []config.Client, a bool, p Permissions) {
	for _, client := range clients {
		m, err := ByID[Auth](context.Background(), db, uuid.MustParse(client.ID))
		require.NoError(t, err, "failed to get key from db")

		assert.True(t, m.Active.Valid, "active is not valid")
		assert.Equalf(t, a, m.Active.V, "active not expected state: %s", client.Note)
		assert.Equalf(t, p, m.Permissions, "permissions not expected state: %s", client.Note)
	}
}
