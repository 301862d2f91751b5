package db

import (
	"database/sql"

	"github.com/cyverse-de/dbutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sekolahku/notification-engine/common"
)

var log = common.Log.WithFields(logrus.Fields{"pkg": "db"})

// InitDatabase establishes a database connection and verifies that the database can be reached. The connection is
// retried until the timeout, given as a duration string such as "1m", expires.
func InitDatabase(driverName, databaseURI, timeout string) (*sql.DB, error) {
	wrapMsg := "unable to initialize the database"

	// Create a database connector to establish the connection.
	connector, err := dbutil.NewDefaultConnector(timeout)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Establish the database connection.
	db, err := connector.Connect(driverName, databaseURI)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return db, nil
}

// nullString converts empty strings to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
