package database

import (
	"context"

	"gorm.io/gorm"
)

// CreateEntity inserts one record of the given type.
func CreateEntity[T any](ctx context.Context, entity *T) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetEntityByID fetches one record of type T by primary key.
func GetEntityByID[T any, ID comparable](ctx context.Context, id ID) (*T, error) {
	db, err := GetDB()
	if err != nil {
		return nil, err
	}
	var out T
	if err := db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEntityByID updates columns of type T where the primary key equals id.
func UpdateEntityByID[T any, ID comparable](ctx context.Context, id ID, updates map[string]interface{}) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	var zero T
	return db.WithContext(ctx).Model(&zero).Where("id = ?", id).Updates(updates).Error
}

// WithTx runs fn inside a transaction on the shared DB.
func WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(fn)
}
