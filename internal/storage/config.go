package storage

import "fmt"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicURL, when set, is the base of asset URLs handed to clients;
	// otherwise they get presigned links.
	PublicURL string
}

func (c *MinIOConfig) Validate() error {
	if c == nil || c.Endpoint == "" {
		return fmt.Errorf("minio config missing")
	}
	if c.Bucket == "" {
		return fmt.Errorf("minio bucket missing")
	}
	return nil
}
