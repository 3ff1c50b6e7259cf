// Package media issues presigned S3 URLs for profile image uploads.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/google/uuid"
)

// Kind is the profile image being uploaded.
type Kind string

const (
	KindAvatar    Kind = "avatar"
	KindCNICFront Kind = "cnicFront"
	KindCNICBack  Kind = "cnicBack"
)

// Valid reports whether k names a known image slot.
func (k Kind) Valid() bool {
	switch k {
	case KindAvatar, KindCNICFront, KindCNICBack:
		return true
	}
	return false
}

// UploadExpiry is how long a presigned upload URL stays valid.
const UploadExpiry = 15 * time.Minute

// Upload tells the client where to PUT the image and which URL to store
// on the profile afterwards.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// S3Presigner signs upload URLs against an S3-compatible store (MinIO in
// development).
type S3Presigner struct {
	config *sc.Config
	now    func() time.Time
}

func NewS3Presigner(config *sc.Config) *S3Presigner {
	return &S3Presigner{config: config, now: time.Now}
}

// StorageKey returns a fresh object key for an image of kind owned by accountID.
func StorageKey(accountID string, kind Kind) string {
	return fmt.Sprintf("accounts/%s/%s/%v", accountID, kind, uuid.New())
}

func (p *S3Presigner) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.config.S3RootUser,
			p.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a presigned PUT for a new image of kind.
func (p *S3Presigner) PresignUpload(ctx context.Context, accountID string, kind Kind) (*Upload, error) {
	presignClient, err := p.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	bucket := p.config.S3Bucket
	key := StorageKey(accountID, kind)
	expiresAt := p.now().Add(UploadExpiry)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(UploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &Upload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: strings.TrimRight(p.config.S3BaseEndpoint, "/") + "/" + bucket + "/" + key,
		ExpiresAt: expiresAt,
	}, nil
}
