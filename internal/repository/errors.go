// Package repository contains the MySQL data access layer.  Sentinel errors
// defined here let the HTTP layer tell a missing entity apart from a storage
// failure.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrMovieNotFound is returned when no movie row matches the requested id.
var ErrMovieNotFound = errors.New("movie not found")

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func uint64Args(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// isMissingParent reports whether err is a MySQL foreign key violation on
// insert (error 1452), i.e. the referenced movie does not exist.
func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1452
}
