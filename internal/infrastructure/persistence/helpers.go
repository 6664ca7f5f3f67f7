package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound to a domain NOT_FOUND naming the resource
func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NotFound(resource, id)
	}
	return err
}

// notFoundBy is notFound for lookups by a natural key
func notFoundBy(err error, resource, field, value string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.Errorf(shared.CodeNotFound, "%s with %s %q not found", resource, field, value)
	}
	return err
}

// duplicate maps a unique-key violation to ALREADY_EXISTS. It relies on
// gorm.Config.TranslateError being set on the connection.
func duplicate(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.Errorf(shared.CodeAlreadyExists, format, args...)
	}
	return err
}

// paginate applies LIMIT/OFFSET for 1-based pages. Zero page size leaves the query unbounded.
func paginate(db *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return db
	}
	if pageSize > shared.MaxPageSize {
		pageSize = shared.MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * pageSize).Limit(pageSize)
}

// likePattern escapes LIKE wildcards in a user supplied term
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

// searchColumns matches term case-insensitively against any of the columns
func searchColumns(db *gorm.DB, term string, columns ...string) *gorm.DB {
	if strings.TrimSpace(term) == "" || len(columns) == 0 {
		return db
	}
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	pattern := likePattern(term)
	for i, c := range columns {
		parts[i] = fmt.Sprintf(`LOWER(%s) LIKE LOWER(?) ESCAPE '\'`, c)
		args[i] = pattern
	}
	return db.Where("("+strings.Join(parts, " OR ")+")", args...)
}

// uuidFilter reads a uuid (or *uuid) filter value
func uuidFilter(f shared.Filter, key string) (uuid.UUID, bool) {
	switch v := f.Filters[key].(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case *uuid.UUID:
		if v != nil {
			return *v, true
		}
	case string:
		if id, err := uuid.Parse(v); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// uuidsFilter reads a []uuid.UUID filter value; ok is true when the key is present,
// even if the slice is empty
func uuidsFilter(f shared.Filter, key string) ([]uuid.UUID, bool) {
	v, ok := f.Filters[key].([]uuid.UUID)
	return v, ok
}

// stringFilter reads a string-like filter value
func stringFilter(f shared.Filter, key string) (string, bool) {
	v, ok := f.Filters[key]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

// scopeUnits restricts column to ids. An empty list matches nothing.
func scopeUnits(db *gorm.DB, column string, ids []uuid.UUID) *gorm.DB {
	if len(ids) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where(column+" IN ?", ids)
}
