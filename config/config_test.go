package config

import (
	"testing"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{"defaults", nil, ""},
		{"bad log level", map[string]any{"app.log_level": "loud"}, "invalid log level provided"},
		{"bad port", map[string]any{"host.port": 70000}, "invalid port provided"},
		{"no secret", map[string]any{"jwt.secret": ""}, ErrNoJWTSecret.Error()},
		{"bad driver", map[string]any{"database.driver": "mongo"}, "invalid database driver provided"},
		{"postgres without dsn", map[string]any{"database.driver": "postgres", "database.dsn": ""}, "postgres requires database.dsn"},
		{"mail without host", map[string]any{"mail.enabled": true, "mail.sender": "a@b.c"}, "mail host can't be empty"},
		{"s3 without bucket", map[string]any{"avatar.storage": "s3", "aws.access_key": "k", "aws.secret_access_key": "s"}, "bucket can't be empty"},
		{"bad avatar storage", map[string]any{"avatar.storage": "disk"}, "invalid avatar storage provided"},
		{"zero avatar size", map[string]any{"avatar.max_size": 0}, "avatar.max_size must be bigger than 0"},
		{"negative rate limit", map[string]any{"security.rate_limit": -1}, "security.rate_limit can't be negative"},
		{"bad cleanup schedule", map[string]any{"cleanup.schedule": "every now and then"}, "invalid cleanup.schedule"},
		{"turnstile without secret", map[string]any{"cloudflare.turnstile.enabled": true}, "turnstile secret token is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.Reset()
			t.Cleanup(v.Reset)

			SetDefaults()
			v.Set("jwt.secret", "secret")

			for k, val := range tt.set {
				v.Set(k, val)
			}

			err := Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
