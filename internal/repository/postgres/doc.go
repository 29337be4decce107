// Package postgres implements the service repositories on database/sql with
// the lib/pq driver. Schema lives in migrations/.
package postgres
