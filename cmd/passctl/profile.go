package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the passctl configuration file.  Flags override its values.
//
//	server: http://localhost:8080
//	session_token: eyJhbGciOi...
//	prefix: pass_
//	jwt_secret: dev-secret
type Profile struct {
	Server       string `yaml:"server"`
	SessionToken string `yaml:"session_token"`
	Prefix       string `yaml:"prefix"`
	JWTSecret    string `yaml:"jwt_secret"`
}

func defaultProfile() Profile {
	return Profile{Server: "http://localhost:8080", Prefix: "pass_"}
}

// loadProfile reads path over the defaults.  An empty path yields the
// defaults.
func loadProfile(path string) (Profile, error) {
	p := defaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return p, nil
}
