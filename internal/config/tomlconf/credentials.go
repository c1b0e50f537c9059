package tomlconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// credentialsFile is the layout of jenkins.credentials_file
type credentialsFile struct {
	Default   map[string]NickCredentials            `yaml:"default"`
	Instances map[string]map[string]NickCredentials `yaml:"instances"`
}

func parseCredentials(data []byte) (*credentialsFile, error) {
	out := new(credentialsFile)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

// merge copies the credentials in the file over those already configured. Entries in the file win
func (j *Jenkins) merge(file *credentialsFile) error {
	if j.Credentials == nil {
		j.Credentials = make(map[string]NickCredentials)
	}
	for nick, creds := range file.Default {
		j.Credentials[strings.ToLower(nick)] = creds
	}

	for name, nicks := range file.Instances {
		inst, ok := j.Instances[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("credentials given for unknown jenkins instance %q", name)
		}
		if inst.Credentials == nil {
			inst.Credentials = make(map[string]NickCredentials)
		}
		for nick, creds := range nicks {
			inst.Credentials[strings.ToLower(nick)] = creds
		}
	}
	return nil
}

// loadCredentialsFile reads jenkins.credentials_file, if set, and merges it in. Relative paths are resolved against
// baseDir
func (j *Jenkins) loadCredentialsFile(baseDir string) error {
	if j.CredentialsFile == "" {
		return nil
	}

	path := j.CredentialsFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read credentials file: %w", err)
	}

	file, err := parseCredentials(data)
	if err != nil {
		return fmt.Errorf("could not parse credentials file %q: %w", path, err)
	}

	return j.merge(file)
}
