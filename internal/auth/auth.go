// Package auth resolves and validates the credentials for the model
// backends: a Gemini API key for vision and a Replicate API token for image
// editing and generation.
package auth

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const credentialDir = ".veo3-storyboard"

// Credential describes one secret and where to look for it.
type Credential struct {
	// Name is used in log lines and error messages.
	Name string
	// EnvVar is checked first.
	EnvVar string
	// File is the GPG-encrypted file under ~/.veo3-storyboard.
	File string
}

var (
	// GeminiKey authenticates the vision model.
	GeminiKey = Credential{Name: "Gemini API key", EnvVar: "GEMINI_API_KEY", File: "gemini.gpg"}
	// ReplicateToken authenticates the editing and generation models.
	ReplicateToken = Credential{Name: "Replicate API token", EnvVar: "REPLICATE_API_TOKEN", File: "replicate.gpg"}
)

// Resolve retrieves the credential from available sources.
// Priority order:
//  1. the credential's environment variable
//  2. GPG-encrypted file at ~/.veo3-storyboard/<file>
func (c Credential) Resolve() (string, error) {
	if key := strings.TrimSpace(os.Getenv(c.EnvVar)); key != "" {
		log.Debug().Str("credential", c.Name).Msg("Using credential from environment variable")
		return key, nil
	}

	key, err := decryptGPG(c.File)
	if err == nil && key != "" {
		log.Debug().Str("credential", c.Name).Msg("Using credential from GPG encrypted file")
		return key, nil
	}

	log.Debug().Err(err).Str("credential", c.Name).Msg("Credential not found")
	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: fmt.Sprintf("%s not found. Set %s or store it in ~/%s/%s", c.Name, c.EnvVar, credentialDir, c.File),
		Err:     err,
	}
}

// GetAPIKey returns the Gemini API key.
func GetAPIKey() (string, error) {
	return GeminiKey.Resolve()
}

// GetReplicateToken returns the Replicate API token.
func GetReplicateToken() (string, error) {
	return ReplicateToken.Resolve()
}

// decryptGPG decrypts a credential file with the local gpg binary.
func decryptGPG(file string) (string, error) {
	credPath, err := credentialPath(file)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}

	if passphrasePath, err := passphrasePath(); err == nil {
		if fi, statErr := os.Stat(passphrasePath); statErr == nil {
			// The passphrase file must be owner-only.
			if mode := fi.Mode().Perm(); mode&0077 != 0 {
				log.Warn().
					Str("passphrase_file", passphrasePath).
					Str("permissions", fmt.Sprintf("%04o", mode)).
					Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			} else {
				args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
			}
		}
	}

	args = append(args, credPath)
	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// credentialPath returns the full path to a credential file.
func credentialPath(file string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, file), nil
}

// passphrasePath looks for .gpg-passphrase next to the executable, then in
// the working directory.
func passphrasePath() (string, error) {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), ".gpg-passphrase")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, ".gpg-passphrase"), nil
}
