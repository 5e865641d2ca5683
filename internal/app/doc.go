// Package app provides the application service layer.
//
// Composes the dashboard read views: run and worker overviews built from the
// record store plus the assignment/pairing merge. Sits between HTTP handlers
// and the store. Depends on domain interfaces, not concrete implementations.
package app
