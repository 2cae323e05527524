package repository

import (
	"errors"

	"github.com/splitledger/splitledger/internal/models"
	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(key *models.APIKey) error {
	return r.db.Create(key).Error
}

func (r *APIKeyRepository) CreateInTx(tx *gorm.DB, key *models.APIKey) error {
	return tx.Create(key).Error
}

func (r *APIKeyRepository) FindByHash(keyHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.Where("key_hash = ?", keyHash).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}
