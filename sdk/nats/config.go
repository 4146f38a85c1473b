package nats

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type Config struct {
	Url         string `mapstructure:"url"`
	Jwt         string `mapstructure:"jwt"`
	Seed        string `mapstructure:"seed"`
	Credentials string `mapstructure:"credentials"`
	Prefix      string `mapstructure:"prefix"`
	Bucket      string `mapstructure:"bucket"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Url) != ""
}

func (c Config) Options(name string) []nats.Option {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(5 * time.Second),
	}

	switch {
	case c.Jwt != "" && c.Seed != "":
		opts = append(opts, nats.UserJWTAndSeed(c.Jwt, c.Seed))
	case c.Credentials != "":
		opts = append(opts, nats.UserCredentials(c.Credentials))
	}

	return opts
}

func (c Config) Connect(name string) (*nats.Conn, error) {
	return nats.Connect(c.Url, c.Options(name)...)
}
