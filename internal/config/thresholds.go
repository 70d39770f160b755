package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadThresholds builds the effective scoring thresholds. Precedence, lowest
// first:
// 1. risk.DefaultThresholds
// 2. The YAML file named by risk.thresholds_file
// 3. Inline overrides under risk.thresholds (config file or TOLLRISK_ env)
func LoadThresholds() (risk.Thresholds, error) {
	th := risk.DefaultThresholds()

	if path := viper.GetString("risk.thresholds_file"); path != "" {
		loaded, err := ReadThresholdsFile(ExpandPath(path))
		if err != nil {
			return risk.Thresholds{}, err
		}
		th = loaded
	}

	if viper.IsSet("risk.thresholds") {
		if err := viper.UnmarshalKey("risk.thresholds", &th); err != nil {
			return risk.Thresholds{}, fmt.Errorf("%w: risk.thresholds: %w", common.ErrInvalidConfig, err)
		}
	}

	if err := th.Validate(); err != nil {
		return risk.Thresholds{}, err
	}
	return th, nil
}

// ReadThresholdsFile reads a YAML thresholds file. Keys left out keep their
// default values.
func ReadThresholdsFile(path string) (risk.Thresholds, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return risk.Thresholds{}, fmt.Errorf("%w: thresholds file %s", common.ErrMissingConfig, path)
		}
		return risk.Thresholds{}, fmt.Errorf("read thresholds: %w", err)
	}
	th, err := DecodeThresholds(data)
	if err != nil {
		return risk.Thresholds{}, fmt.Errorf("%s: %w", path, err)
	}
	return th, nil
}

// DecodeThresholds overlays YAML onto the defaults and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func DecodeThresholds(data []byte) (risk.Thresholds, error) {
	th := risk.DefaultThresholds()
	if len(bytes.TrimSpace(data)) == 0 {
		return th, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&th); err != nil {
		return risk.Thresholds{}, fmt.Errorf("%w: parse thresholds: %w", common.ErrInvalidConfig, err)
	}
	if err := th.Validate(); err != nil {
		return risk.Thresholds{}, err
	}
	return th, nil
}

// EncodeThresholds renders thresholds as YAML.
func EncodeThresholds(th risk.Thresholds) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(th); err != nil {
		return nil, fmt.Errorf("encode thresholds: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode thresholds: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteThresholdsFile writes thresholds as YAML, refusing to overwrite an
// existing file unless force is set.
func WriteThresholdsFile(path string, th risk.Thresholds, force bool) error {
	data, err := EncodeThresholds(th)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create thresholds directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600) // #nosec G304
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return common.NewUserError(fmt.Sprintf("%s already exists; pass --force to overwrite", path), err)
		}
		return fmt.Errorf("create thresholds file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write thresholds file: %w", err)
	}
	return nil
}
