package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMConfig holds configuration for the Parameter Store provider.
type SSMConfig struct {
	// Namespace is the parameter prefix (default "/plc/secure").
	Namespace string

	// Region is the AWS region (e.g., "eu-west-1").
	Region string

	// Endpoint overrides the SSM endpoint (for localstack and tests).
	Endpoint string

	// AccessKeyID is the AWS access key (optional if using IAM roles).
	AccessKeyID string

	// SecretAccessKey is the AWS secret key (optional if using IAM roles).
	SecretAccessKey string
}

// ssmAPI is the Parameter Store surface the provider consumes.
type ssmAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSM fetches the parameter set from AWS Systems Manager Parameter Store
// with decryption enabled.
type SSM struct {
	client    ssmAPI
	namespace string
}

// NewSSM creates a Parameter Store provider.
func NewSSM(ctx context.Context, cfg SSMConfig) (*SSM, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Use static credentials if provided, otherwise use default credential chain
	// (environment variables, IAM roles, etc.)
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: load AWS config: %w", err)
	}

	var ssmOpts []func(*ssm.Options)
	if cfg.Endpoint != "" {
		ssmOpts = append(ssmOpts, func(o *ssm.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &SSM{
		client:    ssm.NewFromConfig(awsCfg, ssmOpts...),
		namespace: namespace,
	}, nil
}

// Fetch retrieves all three parameters with decryption. A missing parameter
// makes the whole set invalid.
func (s *SSM) Fetch(ctx context.Context) (*Params, error) {
	names := []string{
		s.parameterName(KeyPLCAddress),
		s.parameterName(KeyMQTTTopic),
		s.parameterName(KeyGatewayID),
	}

	out, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	values := make(map[string]string, len(out.Parameters))
	for _, p := range out.Parameters {
		if p.Name == nil || p.Value == nil {
			continue
		}
		// Map the full parameter name back to its logical key.
		key := (*p.Name)[strings.LastIndex(*p.Name, "/")+1:]
		values[key] = *p.Value
	}

	var missing []string
	for _, key := range []string{KeyPLCAddress, KeyMQTTTopic, KeyGatewayID} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &FetchError{Missing: missing}
	}

	return &Params{
		PLCAddress: values[KeyPLCAddress],
		MQTTTopic:  values[KeyMQTTTopic],
		GatewayID:  values[KeyGatewayID],
	}, nil
}

// Put writes one logical parameter as an encrypted SecureString.
func (s *SSM) Put(ctx context.Context, key, value string) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.parameterName(key)),
		Value:     aws.String(value),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("secrets: put parameter %s: %w", key, err)
	}
	return nil
}

func (s *SSM) parameterName(key string) string {
	return s.namespace + "/" + key
}
