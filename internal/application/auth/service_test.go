package auth

import (
	"testing"

	"hodhod-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupUserDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, password, role string) *domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		Fullname:     "Salem Al-Ajmi",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestLoginUser_Success(t *testing.T) {
	db := setupUserDB(t)
	seeded := createUser(t, db, "salem@elhodhod.com", "Str0ng!pass", "contractor")

	u, err := LoginUser(db, LoginInput{Email: "salem@elhodhod.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, seeded.UserID, u.UserID)
	assert.Equal(t, "contractor", u.Role)
}

func TestLoginUser_MissingFields(t *testing.T) {
	db := setupUserDB(t)

	_, err := LoginUser(db, LoginInput{})
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)
	_, err = LoginUser(db, LoginInput{Email: "salem@elhodhod.com"})
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)
}

func TestLoginUser_UnknownEmail(t *testing.T) {
	db := setupUserDB(t)

	_, err := LoginUser(db, LoginInput{Email: "nobody@elhodhod.com", Password: "whatever1!"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestLoginUser_WrongPassword(t *testing.T) {
	db := setupUserDB(t)
	createUser(t, db, "salem@elhodhod.com", "Str0ng!pass", "buyer")

	_, err := LoginUser(db, LoginInput{Email: "salem@elhodhod.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestVerifyUser(t *testing.T) {
	_, err := VerifyUser(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = VerifyUser("not-a-map")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = VerifyUser(map[string]interface{}{"fullname": "Salem"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	shape, err := VerifyUser(map[string]interface{}{
		"user_id":  "8f14e45f-ea1a-4b01-a2c7-111111111111",
		"fullname": "Salem Al-Ajmi",
		"email":    "salem@elhodhod.com",
		"role":     "contractor",
	})
	require.NoError(t, err)
	assert.Equal(t, "8f14e45f-ea1a-4b01-a2c7-111111111111", shape.UserID)
	assert.Equal(t, "contractor", shape.Role)
}
