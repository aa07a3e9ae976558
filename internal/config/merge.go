package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyTargetUPM = "target_upm"
	keySrcDir    = "src_dir"
	keyDstDir    = "dst_dir"
	keyPython    = "python"
	keyVerify    = "verify"
	keyLogging   = "logging"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyTargetUPM: true,
	keySrcDir:    true,
	keyDstDir:    true,
	keyPython:    true,
	keyVerify:    true,
	keyLogging:   true,
}

// Load returns the defaults with the YAML file at path merged on top.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	if err := ShallowMergeYAML(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", overlayPath, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling config section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying config section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection unmarshals raw YAML bytes into the field of target named by key.
// The logging section is decoded into a fresh value so absent sub-keys are cleared.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyTargetUPM:
		return yaml.Unmarshal(data, &target.TargetUPM)
	case keySrcDir:
		return yaml.Unmarshal(data, &target.SrcDir)
	case keyDstDir:
		return yaml.Unmarshal(data, &target.DstDir)
	case keyPython:
		return yaml.Unmarshal(data, &target.Python)
	case keyVerify:
		return yaml.Unmarshal(data, &target.Verify)
	case keyLogging:
		var v LoggingConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}
