package helpers

import "github.com/Jeffail/gabs"

// config holds the parsed bot config
var config *gabs.Container

// LoadConfig loads the config from $path into $config
func LoadConfig(path string) {
	json, err := gabs.ParseJSONFile(path)

	if err != nil {
		panic(err)
	}

	config = json
}

// GetConfig is a config getter
func GetConfig() *gabs.Container {
	return config
}

// ConfigString reads a string value at $path, returns "" if unset
func ConfigString(path string) string {
	if config == nil || !config.ExistsP(path) {
		return ""
	}

	value, ok := config.Path(path).Data().(string)
	if !ok {
		return ""
	}

	return value
}
