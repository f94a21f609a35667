package repository

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"brrowbooking/internal/db"
)

type SupportAuthRepository interface {
	GetByEmail(email string) (*db.SupportUser, error)
	CreateUser(email, password string) error
}

type supportAuthRepository struct {
	db *sql.DB
}

func NewSupportAuthRepository(database *sql.DB) SupportAuthRepository {
	return &supportAuthRepository{db: database}
}

func (r *supportAuthRepository) GetByEmail(email string) (*db.SupportUser, error) {
	var user db.SupportUser
	err := r.db.QueryRow("SELECT id, email, password_hash FROM support_users WHERE email = $1", email).
		Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *supportAuthRepository) CreateUser(email, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = r.db.Exec("INSERT INTO support_users (email, password_hash) VALUES ($1, $2)", email, hashedPassword)
	return err
}
