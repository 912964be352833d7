package internal

import (
	"testing"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)

	// Given only the mandatory secret
	t.Setenv("JWT_SECRET", "s3cr3t")
	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	// Then every other key falls back to its default
	req.Equal(5, config.RateLimitMax)
	req.Equal(20, config.DefaultPageLimit)
	req.Equal(100, config.MaxPageLimit)
	req.False(config.TrustClientIdentity)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "badger", config: Config{StoreDriver: StoreBadger, BadgerFilepath: "/tmp/x", DefaultPageLimit: 20, MaxPageLimit: 100}},
		{name: "postgres without dsn", config: Config{StoreDriver: StorePostgres}, wantErr: true},
		{name: "unknown driver", config: Config{StoreDriver: "mongo"}, wantErr: true},
		{name: "default above max", config: Config{StoreDriver: StoreBadger, BadgerFilepath: "/tmp/x", DefaultPageLimit: 200, MaxPageLimit: 100}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)
	r, err := CharacterRune("€")
	req.NoError(err)
	req.Equal('€', r)

	_, err = CharacterRune("**")
	req.Error(err)
}
