package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"backend-trailhunt/internal/db"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const KindChallengePhoto = "challenge_photo"

var ErrNotConfigured = errors.New("storage not configured")

type Object struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	URL string `json:"url"`
}

type Service struct {
	db            db.Querier
	store         ObjectStore
	bucket        string
	publicBaseURL string
	now           func() time.Time
}

func NewService(db db.Querier, store ObjectStore, bucket, publicBaseURL string) *Service {
	return &Service{
		db:            db,
		store:         store,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// PhotoKey is the object key of a challenge photo.
func PhotoKey(userID, challengeID string, at time.Time) string {
	return fmt.Sprintf("%s/%s_%d.jpg", userID, challengeID, at.UnixMilli())
}

func (s *Service) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}

// UploadChallengePhoto stores body and returns its public location.
func (s *Service) UploadChallengePhoto(ctx context.Context, userID, challengeID string, body io.Reader, contentType string) (Object, error) {
	if s.store == nil {
		return Object{}, ErrNotConfigured
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := PhotoKey(userID, challengeID, s.now())
	_, err := s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}

	obj := Object{Key: key, URL: s.PublicURL(key)}
	obj.ID, err = s.SaveObject(ctx, userID, key, obj.URL, KindChallengePhoto)
	if err != nil {
		return Object{}, err
	}
	return obj, nil
}

func (s *Service) SaveObject(ctx context.Context, userID, key, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, key, url, kind)
		VALUES ($1,$2,$3,$4,$5)
	`, id, userID, key, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// KeyFromURL returns the object key behind a public URL, or false when the
// URL points somewhere other than this bucket.
func (s *Service) KeyFromURL(url string) (string, bool) {
	prefix := s.publicBaseURL + "/"
	if s.publicBaseURL == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

// DeletePhoto removes an uploaded photo and its bookkeeping row. Photos
// hosted elsewhere are left alone.
func (s *Service) DeletePhoto(ctx context.Context, url string) error {
	key, ok := s.KeyFromURL(url)
	if !ok {
		return nil
	}
	if s.store == nil {
		return ErrNotConfigured
	}
	_, err := s.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	_, err = s.db.Exec(ctx, `DELETE FROM storage_objects WHERE key=$1`, key)
	return err
}
