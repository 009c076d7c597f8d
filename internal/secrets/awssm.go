package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

const awsBackend = "AWS Secrets Manager"

// secretValueAPI is the subset of the Secrets Manager client used here.
type secretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerResolver resolves awssm://[region]/secret-id[#json-key]
// references. An empty region uses the SDK default chain (AWS_REGION and
// friends). With a #json-key suffix the secret string is decoded as a JSON
// object and the named key is returned.
type AWSSecretsManagerResolver struct {
	newClient func(ctx context.Context, region string) (secretValueAPI, error)
}

// Scheme returns "awssm".
func (r *AWSSecretsManagerResolver) Scheme() string {
	return "awssm"
}

type awsReference struct {
	region   string
	secretID string
	jsonKey  string
}

// parseAWSReference splits awssm://region/secret-id#key. The secret id may
// itself contain slashes or be a full ARN.
func parseAWSReference(reference string) (awsReference, error) {
	rest, ok := strings.CutPrefix(reference, "awssm://")
	if !ok {
		return awsReference{}, &InvalidReferenceError{Reference: reference, Reason: "expected awssm:// prefix"}
	}
	rest, key, hasKey := strings.Cut(rest, "#")
	if hasKey && key == "" {
		return awsReference{}, &InvalidReferenceError{Reference: reference, Reason: "empty JSON key after #"}
	}
	region, id, _ := strings.Cut(rest, "/")
	if id == "" {
		return awsReference{}, &InvalidReferenceError{Reference: reference, Reason: "expected awssm://[region]/secret-id"}
	}
	return awsReference{region: region, secretID: id, jsonKey: key}, nil
}

// Resolve fetches the secret with GetSecretValue.
func (r *AWSSecretsManagerResolver) Resolve(ctx context.Context, reference string) (string, error) {
	ref, err := parseAWSReference(reference)
	if err != nil {
		return "", err
	}

	newClient := r.newClient
	if newClient == nil {
		newClient = defaultSecretsManagerClient
	}
	client, err := newClient(ctx, ref.region)
	if err != nil {
		return "", &BackendError{
			Backend:   awsBackend,
			Reference: reference,
			Reason:    fmt.Sprintf("loading AWS config: %v", err),
			Fix:       "Configure credentials for the job, e.g. with aws-actions/configure-aws-credentials.",
		}
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref.secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", &NotFoundError{Reference: reference, Backend: awsBackend}
		}
		return "", &BackendError{Backend: awsBackend, Reference: reference, Reason: err.Error()}
	}
	if out.SecretString == nil {
		return "", &BackendError{
			Backend:   awsBackend,
			Reference: reference,
			Reason:    "secret has no string value (binary secrets are not supported)",
		}
	}

	value := aws.ToString(out.SecretString)
	if ref.jsonKey == "" {
		return value, nil
	}
	return extractJSONKey(value, ref.jsonKey, reference)
}

func extractJSONKey(secret, key, reference string) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return "", &BackendError{
			Backend:   awsBackend,
			Reference: reference,
			Reason:    "secret is not a JSON object",
		}
	}
	v, ok := fields[key]
	if !ok {
		return "", &NotFoundError{Reference: reference, Backend: awsBackend}
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", &BackendError{Backend: awsBackend, Reference: reference, Reason: fmt.Sprintf("key %q is null", key)}
	default:
		b, _ := json.Marshal(v)
		return string(b), nil
	}
}

func defaultSecretsManagerClient(ctx context.Context, region string) (secretValueAPI, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

func init() {
	Register(&AWSSecretsManagerResolver{})
}
