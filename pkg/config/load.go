package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
)

// LoadClusterFile loads a ClusterConfig from a path to a YAML file.
func LoadClusterFile(path string, expandEnv bool) (ClusterConfig, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return ClusterConfig{}, err
	}

	if expandEnv {
		contents = []byte(os.ExpandEnv(string(contents)))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ClusterConfig{}, err
	}

	config, err := LoadClusterBytes(contents)
	if err != nil {
		return ClusterConfig{}, err
	}

	config.RootDir = filepath.Dir(absPath)
	return config, nil
}

// LoadClusterBytes loads a ClusterConfig from YAML bytes.
func LoadClusterBytes(contents []byte) (ClusterConfig, error) {
	config := ClusterConfig{}
	err := unmarshalYAMLStrict(contents, &config)
	return config, err
}

// LoadSnapshotFile loads a ClusterSnapshot from a path to a YAML file.
func LoadSnapshotFile(path string) (ClusterSnapshot, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return ClusterSnapshot{}, err
	}
	return LoadSnapshotBytes(contents)
}

// LoadSnapshotBytes loads a ClusterSnapshot from YAML bytes.
func LoadSnapshotBytes(contents []byte) (ClusterSnapshot, error) {
	snapshot := ClusterSnapshot{}
	err := unmarshalYAMLStrict(contents, &snapshot)
	return snapshot, err
}

// WriteSnapshotFile writes a ClusterSnapshot to a path as YAML.
func WriteSnapshotFile(path string, snapshot ClusterSnapshot) error {
	contents, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0644)
}

func unmarshalYAMLStrict(y []byte, o interface{}) error {
	jsonBytes, err := yaml.YAMLToJSON(y)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(o)
}
