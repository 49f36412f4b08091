// Package models contains database model definitions for the access control
// service: permissions, roles with single-parent inheritance, members with
// lockout counters, login sessions, password policies and the append-only
// role assignment audit ledger.
package models
