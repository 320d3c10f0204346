package config

import (
	"fmt"
	"net/url"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host       string `env:"TWOFA_PG_HOST" env-default:"localhost"`
	Port       uint16 `env:"TWOFA_PG_PORT" env-default:"5432"`
	Database   string `env:"TWOFA_PG_DATABASE" env-default:"twofa_db"`
	User       string `env:"TWOFA_PG_USER" env-default:"twofa"`
	Password   string `env:"TWOFA_PG_PASSWORD" env-default:"pwd"`
	Schema     string `env:"TWOFA_PG_SCHEMA" env-default:"public"`
	UsersTable string `env:"TWOFA_PG_USERS_TABLE" env-default:"users"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database, d.Schema)
}

func (d DatabaseConfig) validate() ValidationErrors {
	var c checks
	c.required("TWOFA_PG_HOST", d.Host)
	c.port("TWOFA_PG_PORT", d.Port)
	c.required("TWOFA_PG_DATABASE", d.Database)
	c.required("TWOFA_PG_USER", d.User)
	return c.result()
}
