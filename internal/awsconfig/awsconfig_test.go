package awsconfig_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sagarc03/storegate/internal/awsconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StaticCredentials(t *testing.T) {
	cfg, err := awsconfig.Load(context.Background(), awsconfig.Config{
		Region:          "eu-west-1",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)

	assert.Equal(t, 1, cfg.Retryer().MaxAttempts())
}

func TestLoad_DefaultRegion(t *testing.T) {
	cfg, err := awsconfig.Load(context.Background(), awsconfig.Config{AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
}

func TestConfig_EndpointOrNil(t *testing.T) {
	assert.Nil(t, awsconfig.Config{}.EndpointOrNil())
	assert.Equal(t, aws.String("http://localhost:4566"), awsconfig.Config{Endpoint: "http://localhost:4566"}.EndpointOrNil())
}
