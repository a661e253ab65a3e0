//go:build !swag

// Package docs holds the generated swagger spec; build with -tags swag to serve it
package docs
