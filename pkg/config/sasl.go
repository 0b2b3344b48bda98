package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/segmentio/balancectl/pkg/admin"
	log "github.com/sirupsen/logrus"
)

// SASLConfig stores the SASL-related configuration for connecting to a cluster.
type SASLConfig struct {
	Enabled   bool   `json:"enabled"`
	Mechanism string `json:"mechanism"`
	Username  string `json:"username"`
	Password  string `json:"password"`

	// SecretsManagerARN is the ARN of a Secrets Manager secret that holds the username and
	// password as a JSON object, e.g. {"username": "...", "password": "..."}.
	SecretsManagerARN string `json:"secretsManagerArn"`
}

// SecretsManagerAPI is the subset of the Secrets Manager API used to fetch credentials.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

var _ SecretsManagerAPI = (*secretsmanager.Client)(nil)

type saslCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ToAdminConfig converts the config to the form used by the admin connector, fetching the
// credentials from Secrets Manager if an ARN is set. A default client is created if the
// argument one is nil.
func (s SASLConfig) ToAdminConfig(
	ctx context.Context,
	client SecretsManagerAPI,
) (admin.SASLConfig, error) {
	if !s.Enabled {
		return admin.SASLConfig{}, nil
	}

	mechanism, err := admin.SASLNameToMechanism(s.Mechanism)
	if err != nil {
		return admin.SASLConfig{}, err
	}

	saslConfig := admin.SASLConfig{
		Enabled:   true,
		Mechanism: mechanism,
		Username:  s.Username,
		Password:  s.Password,
	}

	if s.SecretsManagerARN == "" {
		return saslConfig, nil
	}

	if client == nil {
		client, err = newSecretsManagerClient(ctx, s.SecretsManagerARN)
		if err != nil {
			return admin.SASLConfig{}, err
		}
	}

	log.Debugf("Fetching SASL credentials from %s", s.SecretsManagerARN)
	resp, err := client.GetSecretValue(
		ctx,
		&secretsmanager.GetSecretValueInput{
			SecretId: aws.String(s.SecretsManagerARN),
		},
	)
	if err != nil {
		return admin.SASLConfig{}, err
	}

	credentials := saslCredentials{}
	if err := json.Unmarshal([]byte(aws.ToString(resp.SecretString)), &credentials); err != nil {
		return admin.SASLConfig{}, fmt.Errorf(
			"Could not parse secret %s: %w",
			s.SecretsManagerARN,
			err,
		)
	}
	if credentials.Username == "" || credentials.Password == "" {
		return admin.SASLConfig{}, errors.New("Secret must contain a username and password")
	}

	saslConfig.Username = credentials.Username
	saslConfig.Password = credentials.Password
	return saslConfig, nil
}

func newSecretsManagerClient(ctx context.Context, arnStr string) (*secretsmanager.Client, error) {
	secretARN, err := arn.Parse(arnStr)
	if err != nil {
		return nil, err
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if secretARN.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(secretARN.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(cfg), nil
}
