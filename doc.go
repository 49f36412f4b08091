// Package main provides the entry point for the MakrCave access control
// service. It runs a Fiber web server exposing a REST API for managing
// permissions, roles, role assignments, login sessions and password policies
// across makerspace tenants. The service uses gorm for data persistence and
// keeps an append-only audit ledger of every role grant and revocation.
package main
