// Package main provides the entry point for the go-secadmin service.
// It runs a Fiber web server exposing a REST API to manage users, roles,
// groups and fine-grained permissions, with authentication against a local
// database, LDAP, OAuth/OIDC, SAML, CAS or a trusted proxy header. The
// application uses gorm for data persistence and ships offline commands to
// converge and clean up the permission graph.
package main
