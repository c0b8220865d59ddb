package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN("journal", "s3cret", "db.internal", "3306", "journal")
	assert.Equal(t,
		"journal:s3cret@tcp(db.internal:3306)/journal?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn)
}

func TestDSNWithoutPassword(t *testing.T) {
	dsn := DSN("root", "", "localhost", "3307", "journal_test")
	assert.Equal(t,
		"root@tcp(localhost:3307)/journal_test?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn, "empty password must not leave a dangling colon")
}
