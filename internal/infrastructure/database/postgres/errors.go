// internal/infrastructure/database/postgres/errors.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the domain error kinds
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %w", entity, apperr.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s query failed: %w", entity, err)
	}
}

func paginate(query *gorm.DB, page, limit int) *gorm.DB {
	if limit <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * limit).Limit(limit)
}
