package config

// These tests verify that we can properly configure the repository service
// with YAML input.
import (
	"fmt"
	"os"

	"github.com/stretchr/testify/assert"
	"testing"
)

// a valid service config entry
const VALID_SERVICE string = `
service:
  port: 8080
  max_connections: 100
  base_url: http://localhost:8080
  cookie_key: ${DATAKEEP_COOKIE_KEY}
`

// a valid storage config entry
const VALID_STORAGE string = `
storage:
  data_dir: /var/lib/datakeep
  storage: /var/lib/datakeep/files
`

// a valid triplestore config entry
const VALID_TRIPLESTORE string = `
triplestore:
  in_memory: true
`

// tests whether config.Init reports an error for blank input
func TestInitRejectsBlankInput(t *testing.T) {
	b := []byte("")
	err := Init(b)
	assert.NotNil(t, err, "Blank config didn't trigger an error.")
}

// tests whether config.Init reports an error for an invalid port
func TestInitRejectsBadPort(t *testing.T) {
	yaml := "service:\n  port: -1\n\n" + VALID_STORAGE + VALID_TRIPLESTORE
	b := []byte(yaml)
	err := Init(b)
	assert.NotNil(t, err, "Config with bad port didn't trigger an error.")
	yaml = "service:\n  port: 1000000\n\n" + VALID_STORAGE + VALID_TRIPLESTORE
	b = []byte(yaml)
	err = Init(b)
	assert.NotNil(t, err, "Config with bad port didn't trigger an error.")
}

// tests whether config.Init reports an error for an invalid max number of
// connections
func TestInitRejectsBadMaxConnections(t *testing.T) {
	yaml := "service:\n  max_connections: 0\n\n" + VALID_STORAGE + VALID_TRIPLESTORE
	b := []byte(yaml)
	err := Init(b)
	assert.NotNil(t, err, "Config with bad maxConnections didn't trigger an error.")
}

// tests whether config.Init rejects a configuration with no storage root
func TestInitRejectsNoStorageDefined(t *testing.T) {
	yaml := VALID_SERVICE + VALID_TRIPLESTORE
	b := []byte(yaml)
	err := Init(b)
	assert.NotNil(t, err, "Config with no storage didn't trigger an error.")
}

// tests whether config.Init rejects a configuration with no triple store
func TestInitRejectsNoTriplestoreDefined(t *testing.T) {
	yaml := VALID_SERVICE + VALID_STORAGE
	b := []byte(yaml)
	err := Init(b)
	assert.NotNil(t, err, "Config with no triplestore didn't trigger an error.")
}

// tests whether config.Init rejects an unknown identity provider
func TestInitRejectsBadIdentityProvider(t *testing.T) {
	yaml := VALID_SERVICE + VALID_STORAGE + VALID_TRIPLESTORE +
		"identity:\n  provider: carrier_pigeon\n\n"
	b := []byte(yaml)
	err := Init(b)
	assert.NotNil(t, err, "Config with bad identity provider didn't trigger an error.")
}

// Tests whether config.Init returns no error for a configuration that is
// (ostensibly) valid. NOTE: This particular configuration is consistent and
// contains acceptible values for fields. It won't actually run a service!
func TestInitAcceptsValidInput(t *testing.T) {
	yaml := VALID_SERVICE + VALID_STORAGE + VALID_TRIPLESTORE
	b := []byte(yaml)
	err := Init(b)
	assert.Nil(t, err, fmt.Sprintf("Valid YAML input produced an error: %s", err))
}

// Tests whether config.Init properly initializes its globals for valid input,
// expanding environment variables along the way.
func TestInitProperlySetsGlobals(t *testing.T) {
	yaml := VALID_SERVICE + VALID_STORAGE + VALID_TRIPLESTORE + `
quotas:
  default: 1000
  domains:
    bigdata.example.com: 5000
privileges:
  editor@example.com:
    may_review: true
    needs_2fa: true
`
	b := []byte(yaml)
	err := Init(b)
	assert.Nil(t, err, fmt.Sprintf("Valid YAML input produced an error: %s", err))

	// Check data
	assert.Equal(t, 8080, Service.Port)
	assert.Equal(t, 100, Service.MaxConnections)
	assert.Equal(t, "http://localhost:8080", Service.BaseUrl)
	assert.Equal(t, "datakeep_session", Service.SessionCookie)
	assert.Equal(t, "sooper-sekrit", Service.CookieKey)
	assert.Equal(t, "/var/lib/datakeep/files", Storage.Storage)
	assert.True(t, Triplestore.InMemory)
	assert.Equal(t, 1000, Quotas.DefaultBytes)
	assert.Equal(t, 5000, Quotas.Domains["bigdata.example.com"])
	assert.True(t, PrivilegeFor("editor@example.com").MayReview)
	assert.True(t, PrivilegeFor("editor@example.com").NeedsTwoFactor)
	assert.False(t, PrivilegeFor("nobody@example.com").MayReview)
}

// tests that defaults survive when the config doesn't mention them
func TestInitAppliesDefaults(t *testing.T) {
	yaml := "service:\n  base_url: http://localhost:8080\n\n" +
		VALID_STORAGE + VALID_TRIPLESTORE
	b := []byte(yaml)
	err := Init(b)
	assert.Nil(t, err, fmt.Sprintf("Valid YAML input produced an error: %s", err))
	assert.Equal(t, 8080, Service.Port)
	assert.Equal(t, 100, Service.MaxConnections)
	assert.Equal(t, 50*1000*1000*1000, Quotas.DefaultBytes)
}

// this function gets called at the begіnning of a test session
func setup() {
	os.Setenv("DATAKEEP_COOKIE_KEY", "sooper-sekrit")
}

// this function gets called after all tests have been run
func breakdown() {
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}
