package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// LoadAWSConfig loads AWS config and supports a LocalStack endpoint via the
// AWS_SQS_ENDPOINT, AWS_SNS_ENDPOINT or AWS_ENDPOINT env vars. When one of them
// is set every SDK client targets that URL instead of AWS.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if provider := staticCredentials(); provider != nil {
		opts = append(opts, config.WithCredentialsProvider(provider))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := firstNonEmpty(os.Getenv("AWS_SQS_ENDPOINT"), os.Getenv("AWS_SNS_ENDPOINT"), os.Getenv("AWS_ENDPOINT"))
	if endpoint == "" {
		return cfg, nil
	}

	signingRegion := firstNonEmpty(cfg.Region, os.Getenv("AWS_REGION"))
	cfg.EndpointResolverWithOptions = sdkaws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
			return sdkaws.Endpoint{
				URL:               endpoint,
				SigningRegion:     firstNonEmpty(signingRegion, region),
				HostnameImmutable: true,
			}, nil
		})

	return cfg, nil
}

// staticCredentials pins the access key pair from the environment, which
// LocalStack needs. Nil leaves the default provider chain in charge.
func staticCredentials() sdkaws.CredentialsProvider {
	key := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if key == "" && secret == "" {
		return nil
	}
	return credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
