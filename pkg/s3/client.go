package s3

import (
	"context"

	"github.com/efezeyus/aiogretmen-sub001/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// GetClient builds an S3 client for MinIO-compatible object storage.
func GetClient() (*awss3.Client, error) {
	s3cfg := config.Cfg.S3
	region := s3cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if s3cfg.AccessKey != "" && s3cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(
				s3cfg.AccessKey,
				s3cfg.SecretKey,
				"",
			),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, err
	}

	endpoint := s3cfg.Endpoint
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = true
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, nil
}
