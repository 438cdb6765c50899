package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// AuthService registers users, issues tokens and maintains profiles.
type AuthService struct {
	db       *gorm.DB
	uploader ImageUploader
	secret   string
	ttl      time.Duration
}

// NewAuthService constructs an AuthService. uploader may be nil, in which case
// only image URLs are accepted.
func NewAuthService(db *gorm.DB, uploader ImageUploader, secret string, ttl time.Duration) *AuthService {
	return &AuthService{db: db, uploader: uploader, secret: secret, ttl: ttl}
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"max=32"`
	Address  string `json:"address" validate:"max=500"`
	Image    string `json:"image"`
}

// UpdateProfileInput carries the profile fields to change; nil fields are
// kept. Changing the password requires CurrentPassword.
type UpdateProfileInput struct {
	Name            *string `json:"name" validate:"omitempty,max=120"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	Address         *string `json:"address" validate:"omitempty,max=500"`
	Image           *string `json:"image"`
	Password        *string `json:"password" validate:"omitempty,min=6,max=72"`
	CurrentPassword string  `json:"current_password"`
}

// Register creates a user with the user role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := startSpan(ctx, "AuthService.Register")
	defer endSpan(span, &err)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	image, err := storeImage(ctx, s.uploader, in.Image)
	if err != nil {
		log.Printf("[Auth] Profile image upload failed for %s: %v", in.Email, err)
		image = ""
	}

	created := models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Image:        image,
		Role:         models.RoleUser,
	}
	if err := db.Create(&created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &created, nil
}

// Login checks credentials and returns the user with a signed token. A
// non-empty pushToken different from the stored one replaces it.
func (s *AuthService) Login(ctx context.Context, email, password, pushToken string) (user *models.User, token string, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer endSpan(span, &err)

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", validationf("email and password are required")
	}

	db := s.db.WithContext(ctx)

	var found models.User
	if err := db.Where("email = ?", email).Take(&found).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !utils.CheckPassword(found.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	pushToken = strings.TrimSpace(pushToken)
	if pushToken != "" && pushToken != found.PushToken {
		if err := db.Model(&found).Update("push_token", pushToken).Error; err != nil {
			return nil, "", err
		}
	}

	token, err = utils.GenerateToken(s.secret, found.ID, found.Role, s.ttl)
	if err != nil {
		return nil, "", err
	}

	return &found, token, nil
}

// SaveToken stores the user's Expo push token.
func (s *AuthService) SaveToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if !IsExpoPushToken(token) {
		return validationf("invalid push token")
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("push_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("user")
	}
	return nil
}

// Profile loads one user.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookup(err, "user")
	}
	return &user, nil
}

// UpdateProfile applies the supplied fields only.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (user *models.User, err error) {
	ctx, span := startSpan(ctx, "AuthService.UpdateProfile")
	defer endSpan(span, &err)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	current, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		updates["address"] = strings.TrimSpace(*in.Address)
	}
	if in.Password != nil {
		if in.CurrentPassword == "" || !utils.CheckPassword(current.PasswordHash, in.CurrentPassword) {
			return nil, &Error{Kind: ErrUnauthorized, Msg: "current password is incorrect"}
		}
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if in.Image != nil {
		image, err := storeImage(ctx, s.uploader, *in.Image)
		if err != nil {
			return nil, err
		}
		updates["image"] = image
	}

	if len(updates) == 0 {
		return current, nil
	}

	if err := s.db.WithContext(ctx).Model(current).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.Profile(ctx, userID)
}

// EnsureAdmin creates the admin account, or promotes an existing user with
// that email. Empty credentials are a no-op.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	db := s.db.WithContext(ctx)

	var existing models.User
	err := db.Where("email = ?", email).Take(&existing).Error
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		log.Printf("[Auth] Promoting %s to admin", email)
		return db.Model(&existing).Update("role", models.RoleAdmin).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	log.Printf("[Auth] Creating admin account %s", email)
	return db.Create(&models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// storeImage turns submitted image data into a hosted URL.
func storeImage(ctx context.Context, uploader ImageUploader, data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", nil
	}
	if uploader == nil {
		if strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://") {
			return data, nil
		}
		return "", ErrImageUploadDisabled
	}
	return uploader.Upload(ctx, data)
}
