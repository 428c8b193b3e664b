package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// LoadSecretEnv fetches a JSON secret from AWS Secrets Manager and exports
// each key as an environment variable, so database passwords and API keys
// ride the same ZDTE_ override path as everything else. Call it before
// Load.
func LoadSecretEnv(name, region string) error {
	svc := secretsmanager.New(session.Must(session.NewSession()), aws.NewConfig().WithRegion(region))
	out, err := svc.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(name),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return fmt.Errorf("fetch secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string payload", name)
	}

	vars := map[string]string{}
	if err := json.Unmarshal([]byte(*out.SecretString), &vars); err != nil {
		return fmt.Errorf("decode secret %s: %w", name, err)
	}
	for key, value := range vars {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s from secret: %w", key, err)
		}
	}
	return nil
}
