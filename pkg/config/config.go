package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines the store's creation/open parameters, loaded from YAML
// and/or flags. max_free_nodes is not here: it is baked into the header
// slot-width formula (btree.DefaultMaxFreeNodes) so that an existing
// file's header size is known before it is ever read.
type Config struct {
	DataFile      string `yaml:"data_file"`
	NumKeys       int    `yaml:"num_keys"`
	KeySize       int    `yaml:"key_size"`
	DataSize      int    `yaml:"data_size"`
	CacheCapacity int    `yaml:"cache_capacity"`
}

// Default returns the store's default creation parameters.
func Default() Config {
	return Config{
		NumKeys:       512,
		KeySize:       64,
		DataSize:      256,
		CacheCapacity: 32,
	}
}

// Load reads a YAML config file from path, starting from Default() so
// unset fields keep their default value. If path is empty or the file
// does not exist, returns Default() and nil error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close config file %q: %v\n", path, closeErr)
		}
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
