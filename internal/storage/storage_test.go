package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func tokenOf(t *testing.T, signedURL string) string {
	t.Helper()
	u, err := url.Parse(signedURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestSignAndVerify(t *testing.T) {
	s := NewSigner(testKey, 15*time.Minute, "http://localhost:8080/")

	signed, err := s.Sign("informe final.pdf", "application/pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(signed.Object, "/informe_final.pdf"))
	assert.True(t, strings.HasPrefix(signed.SignedURL, "http://localhost:8080/upload/"+signed.Object+"?token="))
	assert.Equal(t, "http://localhost:8080/files/"+signed.Object, signed.PublicURL)
	require.NoError(t, ValidateObjectKey(signed.Object))

	claims, err := s.Verify(tokenOf(t, signed.SignedURL), signed.Object, "application/pdf; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", claims.ContentType)
}

func TestVerifyRejects(t *testing.T) {
	s := NewSigner(testKey, time.Minute, "http://signer")
	signed, err := s.Sign("red.png", "image/png")
	require.NoError(t, err)
	token := tokenOf(t, signed.SignedURL)

	_, err = s.Verify(token, signed.Object, "image/jpeg")
	assert.ErrorIs(t, err, ErrContentTypeMismatch)

	_, err = s.Verify(token, NewObjectKey("red.png"), "image/png")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewSigner("another-key-another-key-another-key", time.Minute, "http://signer")
	_, err = other.Verify(token, signed.Object, "image/png")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify("garbage", signed.Object, "image/png")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	s := NewSigner(testKey, time.Minute, "http://signer")
	start := time.Now()
	s.now = func() time.Time { return start }

	signed, err := s.Sign("a.txt", "text/plain")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = s.Verify(tokenOf(t, signed.SignedURL), signed.Object, "text/plain")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"plan.xlsx":          "plan.xlsx",
		"../../etc/passwd":   "passwd",
		`C:\docs\red 1.pdf`:  "red_1.pdf",
		"..":                 "file",
		"":                   "file",
		"año fiscal (2).csv": "a_o_fiscal_2_.csv",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), in)
	}
}

func TestValidateObjectKey(t *testing.T) {
	assert.ErrorIs(t, ValidateObjectKey("no-slash"), ErrInvalidObject)
	assert.ErrorIs(t, ValidateObjectKey("not-a-uuid/file.txt"), ErrInvalidObject)
	assert.ErrorIs(t, ValidateObjectKey(NewObjectKey("x")+"/../y"), ErrInvalidObject)
	assert.NoError(t, ValidateObjectKey(NewObjectKey("x.txt")))
}

func TestBucketPutAndOpen(t *testing.T) {
	b, err := NewBucket(t.TempDir(), 16)
	require.NoError(t, err)
	object := NewObjectKey("notes.txt")

	n, err := b.Put(context.Background(), object, strings.NewReader("hola"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	f, info, err := b.Open(object)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, int64(4), info.Size())
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(got))

	_, _, err = b.Open(NewObjectKey("missing.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBucketRejectsOversize(t *testing.T) {
	b, err := NewBucket(t.TempDir(), 4)
	require.NoError(t, err)
	object := NewObjectKey("big.bin")

	_, err = b.Put(context.Background(), object, bytes.NewReader(make([]byte, 5)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, _, err = b.Open(object)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBucketStopsOnCancelledContext(t *testing.T) {
	b, err := NewBucket(t.TempDir(), 1024)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Put(ctx, NewObjectKey("a.txt"), strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)
}
