// Package lambdaboot provides the Lambda cold-start bootstrap: AWS config,
// API keys from SSM Parameter Store, and startup logging.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/auth"
	"github.com/fpang/veo3-storyboard/internal/logging"
)

// AWSClients holds the core AWS SDK clients used by the Lambda.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// ParameterGetter is the subset of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// LoadCredential copies the SecureString parameter paramName into the
// credential's environment variable, unless the variable is already set.
func LoadCredential(ctx context.Context, client ParameterGetter, cred auth.Credential, paramName string) error {
	if os.Getenv(cred.EnvVar) != "" {
		return nil
	}
	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to read %s from SSM parameter %s: %w", cred.Name, paramName, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return fmt.Errorf("SSM parameter %s is empty", paramName)
	}
	os.Setenv(cred.EnvVar, *result.Parameter.Value)
	log.Debug().
		Str("param", paramName).
		Str("credential", cred.Name).
		Dur("elapsed", time.Since(ssmStart)).
		Msg("Credential loaded from SSM")
	return nil
}

// LoadGeminiKey loads the Gemini API key. Fatals on error.
func LoadGeminiKey(client ParameterGetter, paramName string) {
	if err := LoadCredential(context.Background(), client, auth.GeminiKey, paramName); err != nil {
		log.Fatal().Err(err).Str("param", paramName).Msg("Failed to read API key from SSM")
	}
}

// LoadReplicateToken loads the Replicate token. A missing token only
// disables the Replicate backends, so failures are logged, not fatal.
func LoadReplicateToken(client ParameterGetter, paramName string) bool {
	if err := LoadCredential(context.Background(), client, auth.ReplicateToken, paramName); err != nil {
		log.Warn().Err(err).Str("param", paramName).Msg("Replicate token not found in SSM")
		return false
	}
	return true
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
