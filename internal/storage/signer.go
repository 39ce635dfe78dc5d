// Package storage issues signed upload URLs and stores uploaded objects.
package storage

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken means the upload token is malformed, expired or signed for another object.
	ErrInvalidToken = errors.New("invalid upload token")
	// ErrContentTypeMismatch means the upload's Content-Type differs from the signed one.
	ErrContentTypeMismatch = errors.New("content type does not match signed upload")
	// ErrInvalidObject means an object key is not of the form <id>/<name>.
	ErrInvalidObject = errors.New("invalid object key")
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadClaims are carried by a signed upload URL.
type UploadClaims struct {
	Object      string `json:"obj"`
	ContentType string `json:"ct"`
	jwt.RegisteredClaims
}

// Signed is a signed upload descriptor.
type Signed struct {
	Object    string
	SignedURL string
	PublicURL string
	ExpiresAt time.Time
}

// Signer creates and verifies upload tokens.
type Signer struct {
	key     []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// NewSigner creates a signer whose URLs point at baseURL.
func NewSigner(key string, ttl time.Duration, baseURL string) *Signer {
	return &Signer{
		key:     []byte(key),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Sign allocates an object key for fileName and returns its upload and public URLs.
func (s *Signer) Sign(fileName, contentType string) (*Signed, error) {
	object := NewObjectKey(fileName)
	now := s.now()
	claims := &UploadClaims{
		Object:      object,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "upload",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign upload token: %w", err)
	}

	return &Signed{
		Object:    object,
		SignedURL: s.baseURL + "/upload/" + object + "?token=" + token,
		PublicURL: s.baseURL + "/files/" + object,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks that token authorizes an upload of object with contentType.
func (s *Signer) Verify(token, object, contentType string) (*UploadClaims, error) {
	claims := &UploadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != "upload" || claims.Object != object {
		return nil, fmt.Errorf("%w: token is for another object", ErrInvalidToken)
	}
	if !sameMediaType(claims.ContentType, contentType) {
		return nil, fmt.Errorf("%w: signed %q, got %q", ErrContentTypeMismatch, claims.ContentType, contentType)
	}
	return claims, nil
}

// NewObjectKey returns "<uuid>/<sanitized file name>".
func NewObjectKey(fileName string) string {
	return uuid.NewString() + "/" + SanitizeName(fileName)
}

// SanitizeName keeps the base name and replaces unsafe characters with '_'.
func SanitizeName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// ValidateObjectKey checks the <uuid>/<name> shape produced by NewObjectKey.
func ValidateObjectKey(object string) error {
	id, name, ok := strings.Cut(object, "/")
	if !ok {
		return ErrInvalidObject
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidObject, err)
	}
	if name == "" || SanitizeName(name) != name {
		return fmt.Errorf("%w: bad name %q", ErrInvalidObject, name)
	}
	return nil
}

func sameMediaType(a, b string) bool {
	trim := func(s string) string {
		s, _, _ = strings.Cut(s, ";")
		return strings.ToLower(strings.TrimSpace(s))
	}
	return trim(a) == trim(b)
}
