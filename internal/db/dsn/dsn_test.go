package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

func TestCreate(t *testing.T) {
	cfg := &config.Config{
		DB: config.DB{
			User:     "admin",
			Password: "secret",
			Host:     "db.local",
			Port:     3306,
			Name:     "secadmin",
			Extras:   "parseTime=True",
		},
	}

	assert.Equal(t, "admin:secret@tcp(db.local:3306)/secadmin?parseTime=True", Create(cfg))
}

func TestCreatePostgres(t *testing.T) {
	cfg := &config.Config{
		DB: config.DB{
			User:     "admin",
			Password: "secret",
			Host:     "db.local",
			Port:     5432,
			Name:     "secadmin",
			Extras:   "sslmode=disable",
		},
	}

	assert.Equal(t,
		"host=db.local port=5432 user=admin password=secret dbname=secadmin sslmode=disable",
		CreatePostgres(cfg))
}

func TestDialector(t *testing.T) {
	for _, engine := range []string{EngineMySQL, EnginePostgres, EngineSQLite, ""} {
		cfg := &config.Config{DB: config.DB{GormEngine: engine, Name: ":memory:"}}

		d, err := Dialector(cfg)
		require.NoError(t, err, "engine %q", engine)
		require.NotNil(t, d)
	}

	_, err := Dialector(&config.Config{DB: config.DB{GormEngine: "oracle"}})
	require.ErrorIs(t, err, ErrUnknownEngine)
}
