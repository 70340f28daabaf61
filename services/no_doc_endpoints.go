//go:build !docs
// +build !docs

// Stub for builds without embedded API documentation; the /docs routes are
// simply absent.

package services

import (
	"github.com/gorilla/mux"
)

var HaveDocEndpoints bool = false

func AddDocEndpoints(r *mux.Router) {
}
