package r2

import (
	"fmt"
	"log/slog"

	"beps/internal/config"
	"beps/internal/domain/repositories"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewObjectStore builds the bucket adapter. Without credentials it returns a
// store whose every call fails with domain.ErrStorageUnavailable, so read
// paths can degrade instead of refusing to start.
func NewObjectStore(cfg *config.Config, logger *slog.Logger) repositories.ObjectStore {
	if !cfg.ObjectStoreConfigured() {
		logger.Warn("object store credentials missing; storage calls will report unavailable")
		return unavailableStore{}
	}

	endpoint := cfg.R2EndpointURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}

	awsCfg := aws.Config{
		Region:      "auto",
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = false
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	logger.Info("object store configured", "endpoint", endpoint, "bucket", cfg.R2BucketName)

	return &ObjectStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.R2BucketName,
		logger:    logger,
	}
}
