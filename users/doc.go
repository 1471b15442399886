// Package users reads forum accounts from the Postgres users table for the
// authentication engine. Account CRUD lives elsewhere; this package only
// looks users up and seeds them from the command line.
package users
