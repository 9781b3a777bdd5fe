package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// Environment variable names read by FromEnv.
const (
	EnvDB        = "WAVE_DB"
	EnvDBDriver  = "WAVE_DB_DRIVER"
	EnvRedisAddr = "WAVE_REDIS_ADDR"
	EnvJWTSecret = "WAVE_JWT_SECRET"
	EnvJWTIssuer = "WAVE_JWT_ISSUER"
	EnvChatURL   = "WAVE_CHAT_URL"
	EnvChatToken = "WAVE_CHAT_TOKEN"
	EnvAddr      = "WAVE_ADDR"
	EnvConfig    = "WAVE_CONFIG"
)

// Env holds process settings that do not belong in the CUE file, mostly
// endpoints and secrets.
type Env struct {
	DB        string
	DBDriver  string
	RedisAddr string
	JWTSecret string
	JWTIssuer string
	ChatURL   string
	ChatToken string
	Addr      string
	Config    string
}

// FromEnv reads Env through lookup, which is usually os.LookupEnv.
// Unset variables keep their defaults.
func FromEnv(lookup func(string) (string, bool)) Env {
	e := Env{
		DB:       "waves.db",
		DBDriver: "sqlite",
		Addr:     ":8080",
	}
	fields := map[string]*string{
		EnvDB:        &e.DB,
		EnvDBDriver:  &e.DBDriver,
		EnvRedisAddr: &e.RedisAddr,
		EnvJWTSecret: &e.JWTSecret,
		EnvJWTIssuer: &e.JWTIssuer,
		EnvChatURL:   &e.ChatURL,
		EnvChatToken: &e.ChatToken,
		EnvAddr:      &e.Addr,
		EnvConfig:    &e.Config,
	}
	for name, dst := range fields {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	return e
}

// DotEnvLookup returns a lookup that consults base first and then the
// given .env files, earlier files winning. Missing files are ignored and
// the process environment is left untouched.
func DotEnvLookup(base func(string) (string, bool), files ...string) (func(string) (string, bool), error) {
	vars := map[string]string{}
	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return base, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range values {
			if _, seen := vars[k]; !seen {
				vars[k] = v
			}
		}
	}
	return func(name string) (string, bool) {
		if v, ok := base(name); ok {
			return v, true
		}
		v, ok := vars[name]
		return v, ok
	}, nil
}
