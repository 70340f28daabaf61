package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// global config variables
var Service serviceConfig
var Storage storageConfig
var Triplestore triplestoreConfig
var DataCite dataciteConfig
var Identity identityConfig
var Quotas quotasConfig
var Privileges map[string]Privilege

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Service     serviceConfig        `yaml:"service"`
	Storage     storageConfig        `yaml:"storage"`
	Triplestore triplestoreConfig    `yaml:"triplestore"`
	DataCite    dataciteConfig       `yaml:"datacite"`
	Identity    identityConfig       `yaml:"identity"`
	Quotas      quotasConfig         `yaml:"quotas"`
	Privileges  map[string]Privilege `yaml:"privileges"`
}

// This helper reads a configuration file, returning an error indicating
// success or failure. All environment variables of the form ${ENV_VAR} are
// expanded.
func readConfig(bytes []byte) error {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Port = 8080
	conf.Service.MaxConnections = 100
	conf.Service.SessionCookie = "datakeep_session"
	conf.Quotas.DefaultBytes = 50 * 1000 * 1000 * 1000
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		log.Printf("Couldn't parse configuration data: %s\n", err)
		return err
	}

	// copy the config data into place
	Service = conf.Service
	Storage = conf.Storage
	Triplestore = conf.Triplestore
	DataCite = conf.DataCite
	Identity = conf.Identity
	Quotas = conf.Quotas
	Privileges = conf.Privileges
	if Privileges == nil {
		Privileges = make(map[string]Privilege)
	}

	return err
}

// This helper validates the given service parameters, returning an
// error indicating success or failure.
func validateServiceParameters(params serviceConfig) error {
	if params.Port < 0 || params.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", params.Port)
	}
	if params.MaxConnections <= 0 {
		return fmt.Errorf("Invalid maxConnections: %d (must be positive)",
			params.MaxConnections)
	}
	return nil
}

// This helper validates the given config file, returning an error that
// indicates success or failure.
func validateConfig() error {
	err := validateServiceParameters(Service)
	if err != nil {
		return err
	}

	// Do we know where to put bytes?
	if Storage.Storage == "" {
		return fmt.Errorf("No storage root was provided!")
	}
	if Storage.DataDirectory == "" {
		return fmt.Errorf("No data directory was provided!")
	}

	// A triple store is either a remote endpoint or a local state file.
	if Triplestore.Endpoint == "" && Triplestore.StatePath == "" && !Triplestore.InMemory {
		return fmt.Errorf("No triplestore was provided!")
	}

	switch Identity.Provider {
	case "saml", "orcid", "none", "":
	default:
		return fmt.Errorf("Invalid identity provider: %s", Identity.Provider)
	}
	return nil
}

// Initializes the repository service configuration using the given YAML byte
// data.
func Init(yamlData []byte) error {

	// Read the configuration from our YAML file.
	err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig()
	return err
}
