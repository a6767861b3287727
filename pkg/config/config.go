package config

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".coredbg"
	configFile string = "config.yml"

	// DefaultEventPumpTimeout bounds how long a single WaitDebugEvent
	// call keeps polling (non-blocking wait4) for a debug event before
	// returning none.
	DefaultEventPumpTimeout = 5 * time.Second
)

// EngineConfig defines the options available to be set through the config
// file for the core engine, as opposed to any UI layered on top of it.
type EngineConfig struct {
	// EventPumpTimeoutMS bounds a single WaitDebugEvent call, in
	// milliseconds. Zero means DefaultEventPumpTimeout.
	EventPumpTimeoutMS int `yaml:"event-pump-timeout-ms"`
	// PageSize is decoded from the config file but not applied by this
	// module: native.Session always sizes read_pages with the value
	// reported by the runtime (os.Getpagesize).
	PageSize int `yaml:"page-size"`
	// LogLayers lists the logflags layers enabled at startup, equivalent
	// to the comma-separated --log-output flag.
	LogLayers []string `yaml:"log-layers"`
}

// EventPumpTimeout returns the configured event pump timeout, falling
// back to DefaultEventPumpTimeout when unset.
func (c *EngineConfig) EventPumpTimeout() time.Duration {
	if c == nil || c.EventPumpTimeoutMS <= 0 {
		return DefaultEventPumpTimeout
	}
	return time.Duration(c.EventPumpTimeoutMS) * time.Millisecond
}

// LoadConfig attempts to populate an EngineConfig object from the
// config.yml file, creating a commented-out default file on first run.
func LoadConfig() *EngineConfig {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return nil
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return nil
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		createDefaultConfig(fullConfigFile)
		return nil
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.", err)
		return nil
	}

	var c EngineConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.", err)
		return nil
	}

	return &c
}

func createDefaultConfig(path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("Unable to create config file: %v.", err)
		return
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()
	err = writeDefaultConfig(f)
	if err != nil {
		fmt.Printf("Unable to write default configuration: %v.", err)
	}
}

func writeDefaultConfig(f *os.File) error {
	var buffer bytes.Buffer
	buffer.WriteString(
		`# Configuration file for the coredbg process-control engine.

# This is the default configuration file. Available options are provided,
# but disabled. Delete the leading hash mark to enable an item.

# event-pump-timeout-ms: 5000
# page-size: 4096

# log-layers:
#   - session
#   - eventpump
`)

	_, err := buffer.WriteTo(f)

	return err
}

// createConfigPath creates the directory structure at which all config
// files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(usr.HomeDir, configDir, file), nil
}
