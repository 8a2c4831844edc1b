package targetcfg

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

type S3Options struct {
	Bucket         string `json:"bucket"`
	PrefixOverride string `json:"prefix"`
	Region         string `json:"region"`
	MaxRetry       int    `json:"max_retry"`
}

type Postgres struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	DB           string `json:"db"`
	UserName     string `json:"user_name"`
	Password     string `json:"password"`
	Schema       string `json:"schema"`
	SSLMode      string `json:"ssl_mode"`
	PoolSize     int    `json:"pool_size"`
	QueryLogging bool   `json:"query_log"`
}

func (p *Postgres) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.UserName, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// ApplyEnv : POSTGRES_* variables win over the job file
func (p *Postgres) ApplyEnv(getenv func(string) string) error {
	setStr(&p.Host, getenv("POSTGRES_HOST"))
	setStr(&p.DB, getenv("POSTGRES_DB"))
	setStr(&p.UserName, getenv("POSTGRES_USER"))
	setStr(&p.Password, getenv("POSTGRES_PASSWORD"))
	setStr(&p.Schema, getenv("POSTGRES_SCHEMA"))
	setStr(&p.SSLMode, getenv("POSTGRES_SSLMODE"))
	if v := getenv("POSTGRES_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSTGRES_PORT : %w", err)
		}
		p.Port = port
	}
	return nil
}

func (p *Postgres) SetDefaults() {
	if p.Port == 0 {
		p.Port = 5432
	}
	if p.Schema == "" {
		p.Schema = "bronze"
	}
	if p.SSLMode == "" {
		p.SSLMode = "disable"
	}
	if p.PoolSize == 0 {
		p.PoolSize = 5
	}
}

func (p *Postgres) Validate() []error {
	var errs []error
	if p.Host == "" {
		errs = append(errs, fmt.Errorf("target : host is required"))
	}
	if p.DB == "" {
		errs = append(errs, fmt.Errorf("target : db is required"))
	}
	if p.UserName == "" {
		errs = append(errs, fmt.Errorf("target : user_name is required"))
	}
	return errs
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
