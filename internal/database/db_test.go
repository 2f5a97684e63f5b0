package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	got := dsn("app", "s3cret", "db.internal", "3306", "giapha")
	assert.True(t, strings.HasPrefix(got, "app:s3cret@tcp(db.internal:3306)/giapha?"), got)
	assert.Contains(t, got, "parseTime=true")
	assert.Contains(t, got, "charset=utf8mb4")

	// An empty password must not leave a dangling colon.
	got = dsn("app", "", "db.internal", "3306", "giapha")
	assert.True(t, strings.HasPrefix(got, "app@tcp(db.internal:3306)/giapha"), got)
}
