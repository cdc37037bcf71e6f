package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("security: invalid token")

const (
	audienceCompany = "company"
	audienceAdmin   = "admin"
)

// CompanyClaims identifies the company a front request acts for.
type CompanyClaims struct {
	CompanyID uint64 `json:"company_id"`
	jwt.RegisteredClaims
}

// AdminClaims identifies an administrator.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func registered(audience string, expiry time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
}

func sign(secret string, claims jwt.Claims) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("security: empty jwt secret")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

func parse(secret, raw, audience string, claims jwt.Claims) error {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(raw) == "" {
		return ErrInvalidToken
	}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(audience), jwt.WithExpirationRequired())
	if errParse != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// IssueCompanyToken signs a bearer token for companyID.
func IssueCompanyToken(secret string, companyID uint64, expiry time.Duration) (string, error) {
	if companyID == 0 {
		return "", fmt.Errorf("security: empty company id")
	}
	return sign(secret, &CompanyClaims{
		CompanyID:        companyID,
		RegisteredClaims: registered(audienceCompany, expiry, time.Now()),
	})
}

// ParseCompanyToken verifies a company bearer token.
func ParseCompanyToken(secret, raw string) (*CompanyClaims, error) {
	claims := &CompanyClaims{}
	if errParse := parse(secret, raw, audienceCompany, claims); errParse != nil {
		return nil, errParse
	}
	if claims.CompanyID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueAdminToken signs a bearer token for an administrator.
func IssueAdminToken(secret string, adminID uint64, username string, expiry time.Duration) (string, error) {
	if adminID == 0 {
		return "", fmt.Errorf("security: empty admin id")
	}
	return sign(secret, &AdminClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registered(audienceAdmin, expiry, time.Now()),
	})
}

// ParseAdminToken verifies an admin bearer token.
func ParseAdminToken(secret, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if errParse := parse(secret, raw, audienceAdmin, claims); errParse != nil {
		return nil, errParse
	}
	if claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
