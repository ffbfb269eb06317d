// Package config loads gateway configuration from the environment and an
// optional .env file.
package config

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string `mapstructure:"PORT" validate:"required"`
	Env                string `mapstructure:"ENV" validate:"oneof=development internal-dev integration production"`
	LogLevel           string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	SpineBaseURL       string `mapstructure:"SPINE_BASE_URL" validate:"required,hostname_port|hostname|fqdn"`
	SpineFromASID      string `mapstructure:"SPINE_FROM_ASID"`
	SpineToASID        string `mapstructure:"SPINE_TO_ASID"`
	CRLDistributionURL string `mapstructure:"CRL_DISTRIBUTION_URL" validate:"omitempty,url"`
	// TrustedSubCACerts is a PEM bundle of the sub-CA certificates accepted
	// as issuers of prescription signing certificates.
	TrustedSubCACerts string `mapstructure:"TRUSTED_SUBCA_CERTS"`
	TLSEnabled        bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile       string `mapstructure:"TLS_CERT_FILE" validate:"required_with=TLSEnabled"`
	TLSKeyFile        string `mapstructure:"TLS_KEY_FILE" validate:"required_with=TLSEnabled"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "9000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up.
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL",
		"SPINE_BASE_URL", "SPINE_FROM_ASID", "SPINE_TO_ASID",
		"CRL_DISTRIBUTION_URL", "TRUSTED_SUBCA_CERTS",
		"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	} {
		v.BindEnv(key)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Signature
// verification needs at least one trusted sub-CA outside development.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return fmt.Errorf("config field %s failed %q validation", invalid[0].Field(), invalid[0].Tag())
		}
		return err
	}
	if !c.IsDev() && c.TrustedSubCACerts == "" {
		return fmt.Errorf("TRUSTED_SUBCA_CERTS is required when ENV is %q", c.Env)
	}
	if _, err := c.TrustedCertificates(); err != nil {
		return err
	}
	return nil
}

// TrustedCertificates parses the configured PEM bundle.
func (c *Config) TrustedCertificates() ([]*x509.Certificate, error) {
	var certificates []*x509.Certificate
	rest := []byte(strings.TrimSpace(c.TrustedSubCACerts))
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		certificate, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_SUBCA_CERTS contains an unparseable certificate: %w", err)
		}
		certificates = append(certificates, certificate)
	}
	return certificates, nil
}
