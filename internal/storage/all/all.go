// Package all registers every ledger backend and the SQL Server driver.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "upvariants/internal/storage/mssql"
	_ "upvariants/internal/storage/postgres"
	_ "upvariants/internal/storage/sqlite"
)
