package core

import (
	"fmt"
	"strings"
)

// Config carries the §6 environment/policy toggles plus service naming,
// resolved through the defaults < loaded-config < runtime-override layering
// in GoOptionsResolver.
type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`

	// FingerprintEnabled toggles the use-tracker (§4.9); default true.
	FingerprintEnabled bool `koanf:"fingerprint_enabled" mapstructure:"fingerprint_enabled"`

	// UseOwnImpliesAdminister elevates UseOwn to require administrator
	// rights when set (§6); default false.
	UseOwnImpliesAdminister bool `koanf:"use_own_implies_administer" mapstructure:"use_own_implies_administer"`

	// FIPSAlgorithms enforces the 14-character minimum password length at
	// credential construction (§6); default false.
	FIPSAlgorithms bool `koanf:"fips_algorithms" mapstructure:"fips_algorithms"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:             "credentials-store",
		FingerprintEnabled:      true,
		UseOwnImpliesAdminister: false,
		FIPSAlgorithms:          false,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return nil
}
