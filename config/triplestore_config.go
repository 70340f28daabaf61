package config

// where the repository's RDF state lives
type triplestoreConfig struct {
	// SPARQL 1.1 query endpoint URL; empty selects the local store
	Endpoint string `yaml:"endpoint"`
	// SPARQL 1.1 update endpoint URL (defaults to the query endpoint)
	UpdateEndpoint string `yaml:"update_endpoint"`
	// URI of the named graph holding all repository state
	GraphUri string `yaml:"graph_uri"`
	// snapshot file for the local store (empty + in_memory: transient)
	StatePath string `yaml:"state_path"`
	// use a purely transient in-memory store (testing)
	InMemory bool `yaml:"in_memory"`
	// log every write query verbatim before execution
	AuditEnabled bool `yaml:"audit_enabled"`
}

// credentials and prefix for the DataCite DOI registry
type dataciteConfig struct {
	// base URL of the DataCite REST API
	Url string `yaml:"url"`
	// basic-auth credentials
	// DO NOT STORE THESE IN A CONFIG FILE! Use environment variables instead.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// the DOI prefix assigned to this repository
	Prefix string `yaml:"prefix"`
}
