package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	console "github.com/velocity-platform/console"
)

type profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("empty store has no token", func(t *testing.T) {
				s := newStore(t)
				token, err := Token(ctx, s)
				require.NoError(t, err)
				assert.Empty(t, token)

				var p profile
				assert.ErrorIs(t, LoadUser(ctx, s, &p), ErrNoSession)
			})

			t.Run("save then load credentials", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, SaveCredentials(ctx, s, "tok-1", profile{ID: "u1", Email: "user@x.com"}))

				token, err := Token(ctx, s)
				require.NoError(t, err)
				assert.Equal(t, "tok-1", token)

				var p profile
				require.NoError(t, LoadUser(ctx, s, &p))
				assert.Equal(t, profile{ID: "u1", Email: "user@x.com"}, p)
			})

			t.Run("clear removes both keys and is idempotent", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, SaveCredentials(ctx, s, "tok-1", profile{ID: "u1"}))

				require.NoError(t, Clear(ctx, s))
				require.NoError(t, Clear(ctx, s))

				token, _ := s.Get(ctx, console.TokenStorageKey)
				user, _ := s.Get(ctx, console.UserStorageKey)
				assert.Empty(t, token)
				assert.Empty(t, user)
			})

			t.Run("set token keeps user", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, SaveCredentials(ctx, s, "tok-1", profile{ID: "u1"}))
				require.NoError(t, SetToken(ctx, s, "tok-2"))

				token, _ := Token(ctx, s)
				assert.Equal(t, "tok-2", token)
				var p profile
				require.NoError(t, LoadUser(ctx, s, &p))
				assert.Equal(t, "u1", p.ID)
			})

			t.Run("concurrent writers never produce torn values", func(t *testing.T) {
				s := newStore(t)
				values := []string{"aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb"}

				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						_ = SetToken(ctx, s, values[i%2])
						got, err := Token(ctx, s)
						assert.NoError(t, err)
						assert.Contains(t, values, got)
					}(i)
				}
				wg.Wait()
			})
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, SetToken(ctx, NewFileStore(path), "tok-1"))

	token, err := Token(ctx, NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_ClearRemovesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)

	require.NoError(t, SaveCredentials(ctx, s, "tok-1", profile{ID: "u1"}))
	require.NoError(t, Clear(ctx, s))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{ not json"), 0o600))

	_, err := NewFileStore(path).Get(context.Background(), console.TokenStorageKey)
	assert.ErrorIs(t, err, ErrCorruptSession)
}

func TestFileStore_CorruptFileRecovers(t *testing.T) {
	ctx := context.Background()

	t.Run("set replaces the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte("{ not json"), 0o600))
		s := NewFileStore(path)

		require.NoError(t, SetToken(ctx, s, "T1"))
		token, err := Token(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, "T1", token)
	})

	t.Run("clear deletes the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte("[1, 2]"), 0o600))
		s := NewFileStore(path)

		require.NoError(t, Clear(ctx, s))
		assert.NoFileExists(t, path)

		token, err := Token(ctx, s)
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestRefreshTokenIsClearedWithSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, SaveCredentials(ctx, s, "T1", map[string]string{"id": "u-1"}))
	require.NoError(t, SaveRefreshToken(ctx, s, "R1"))
	rt, err := RefreshToken(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "R1", rt)

	require.NoError(t, Clear(ctx, s))
	assert.Zero(t, s.Len())
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-123",
		"email": "user@x.com",
		"iss":   "velocity",
		"exp":   exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		want    TokenInfo
		wantErr bool
	}{
		{
			name:  "jwt claims",
			token: signed,
			want:  TokenInfo{Subject: "user-123", Email: "user@x.com", Issuer: "velocity", ExpiresAt: exp},
		},
		{name: "opaque token", token: "not-a-jwt", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InspectToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOpaqueToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Subject, got.Subject)
			assert.Equal(t, tt.want.Email, got.Email)
			assert.Equal(t, tt.want.Issuer, got.Issuer)
			assert.True(t, tt.want.ExpiresAt.Equal(got.ExpiresAt))
			assert.False(t, got.Expired(time.Now()))
		})
	}
}
