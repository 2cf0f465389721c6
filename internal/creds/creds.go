// Package creds resolves AWS-style credentials from the environment or
// a shared credentials file.
package creds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"
)

var (
	// ErrProfileNotFound is returned when neither the requested profile
	// nor the "default" profile exists in the credentials file.
	ErrProfileNotFound = errors.New("stratum: credential profile not found")

	// ErrIncomplete is returned when the region, access key id, or
	// secret access key is still missing after the environment and the
	// credentials file have both been consulted.
	ErrIncomplete = errors.New("stratum: incomplete credentials")
)

// Credentials is a complete credential set for signing requests.
// Immutable after resolution; never persisted.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// profileCache holds parsed credentials files for the lifetime of the
// process, keyed by path. A file is cached only after a successful
// read and is never invalidated; a changed credentials file is picked
// up on process restart only.
type profileCache struct {
	mu    sync.Mutex
	files map[string]*ini.File
}

var sharedProfiles profileCache

func (c *profileCache) load(path string) (*ini.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.files[path]; ok {
		return f, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("stratum: read credentials file %s: %w", path, err)
	}
	if c.files == nil {
		c.files = make(map[string]*ini.File)
	}
	c.files[path] = f
	return f, nil
}

// Resolve returns a complete credential set. The region and profile
// arguments are optional; empty values fall back to the environment
// and then the shared credentials file.
//
// If the environment carries a full credential set (access key id,
// secret key, and a known region), the file is not read at all.
func Resolve(region, profile string) (Credentials, error) {
	if region == "" {
		region = envRegion()
	}

	if c, ok := fromEnv(region); ok {
		return c, nil
	}

	sec, err := profileSection(profile)
	if err != nil {
		return Credentials{}, err
	}

	// Region resolved from the environment wins over the file value.
	if region == "" {
		region = sec.Key("region").String()
	}

	c := Credentials{
		Region:          region,
		AccessKeyID:     sec.Key("aws_access_key_id").String(),
		SecretAccessKey: sec.Key("aws_secret_access_key").String(),
		SessionToken:    sec.Key("aws_session_token").String(),
	}
	return c, c.check()
}

// fromEnv returns environment credentials when all mandatory fields
// are present.
func fromEnv(region string) (Credentials, bool) {
	c := Credentials{
		Region:          region,
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
	if c.Region == "" || c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return Credentials{}, false
	}
	return c, true
}

func envRegion() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return os.Getenv("AWS_DEFAULT_REGION")
}

// profileSection loads the shared credentials file and selects the
// named profile, falling back to "default".
func profileSection(profile string) (*ini.Section, error) {
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	if profile == "" {
		profile = "default"
	}

	f, err := sharedProfiles.load(credentialsPath())
	if err != nil {
		return nil, err
	}

	if sec, err := f.GetSection(profile); err == nil {
		return sec, nil
	}
	if sec, err := f.GetSection("default"); err == nil {
		return sec, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, profile)
}

// credentialsPath returns the shared credentials file location,
// honoring the AWS_SHARED_CREDENTIALS_FILE override.
func credentialsPath() string {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "credentials")
}

func (c Credentials) check() error {
	switch {
	case c.Region == "":
		return fmt.Errorf("%w: missing region", ErrIncomplete)
	case c.AccessKeyID == "":
		return fmt.Errorf("%w: missing access key id", ErrIncomplete)
	case c.SecretAccessKey == "":
		return fmt.Errorf("%w: missing secret access key", ErrIncomplete)
	}
	return nil
}
