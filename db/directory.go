package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/sekolahku/notification-engine/directory"
	"github.com/sekolahku/notification-engine/model"
)

// activeStatuses are the normalized status values that mark a directory member as active.
var activeStatuses = []string{"active", "aktif"}

// Directory lists the members of one audience type from its table.
type Directory struct {
	db        *sql.DB
	table     string
	keyColumn string
	setKey    func(*directory.Entry, string)
}

// NewDirectory returns the directory for the given user type. Unknown user types have no directory.
func NewDirectory(db *sql.DB, userType model.UserType) (*Directory, error) {
	d := &Directory{db: db}

	switch userType {
	case model.UserTypeStudent:
		d.table, d.keyColumn = "students", "nis"
		d.setKey = func(e *directory.Entry, key string) { e.NIS = key }
	case model.UserTypeTeacher:
		d.table, d.keyColumn = "teachers", "nip"
		d.setKey = func(e *directory.Entry, key string) { e.NIP = key }
	case model.UserTypeDepartmentHead:
		d.table, d.keyColumn = "department_heads", "nip"
		d.setKey = func(e *directory.Entry, key string) { e.NIP = key }
	case model.UserTypeAdmin:
		d.table, d.keyColumn = "admins", "email"
		d.setKey = func(e *directory.Entry, key string) { e.Email = key }
	default:
		return nil, fmt.Errorf("no directory table for user type %q", userType)
	}

	return d, nil
}

// ListActive lists the active members of the directory, narrowed to a department if the filter names one.
func (d *Directory) ListActive(ctx context.Context, filter directory.Filter) ([]directory.Entry, error) {
	wrapMsg := fmt.Sprintf("unable to list the members of %s", d.table)

	query := psql.
		Select(
			"COALESCE(user_id, '')",
			d.keyColumn,
			"COALESCE(name, '')",
			"COALESCE(department, '')",
			"COALESCE(status, '')").
		From(d.table).
		Where(sq.Eq{"lower(trim(status))": activeStatuses}).
		OrderBy(d.keyColumn)
	if filter.Department != "" {
		query = query.Where(sq.Eq{"department": filter.Department})
	}

	statement, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := d.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	entries := make([]directory.Entry, 0)
	for rows.Next() {
		var entry directory.Entry
		var key string
		err := rows.Scan(&entry.UserID, &key, &entry.Name, &entry.Department, &entry.Status)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		d.setKey(&entry, key)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return entries, nil
}
