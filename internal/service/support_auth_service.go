package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"brrowbooking/internal/repository"
)

type SupportAuthService interface {
	Login(email, password string) (string, error)
	CreateUser(email, password string) error
}

type supportAuthService struct {
	repo repository.SupportAuthRepository
}

func NewSupportAuthService(repo repository.SupportAuthRepository) SupportAuthService {
	return &supportAuthService{repo: repo}
}

func (s *supportAuthService) Login(email, password string) (string, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}

	claims := jwt.MapClaims{
		"support_id": user.ID,
		"email":      user.Email,
		"exp":        time.Now().Add(time.Hour * 8).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *supportAuthService) CreateUser(email, password string) error {
	if email == "" || password == "" {
		return errors.New("email and password cannot be empty")
	}
	return s.repo.CreateUser(email, password)
}
