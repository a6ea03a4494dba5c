package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/dabooks/internal/flagx"
)

// Duration lets JSON specify intervals either as strings like "15s" or as
// integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-valued fields that are absent from the file leave Config untouched.
type JsonConfig struct {
	Environment         string    `json:"environment"`
	APIURL              string    `json:"api_url"`
	RequestTimeout      *Duration `json:"request_timeout"`
	ExpiryCheckInterval *Duration `json:"expiry_check_interval"`
	SearchDebounce      *Duration `json:"search_debounce"`
	PageSize            int       `json:"page_size"`
	StateFile           string    `json:"state_file"`
	LogLevel            string    `json:"log_level"`
	MetricsAddr         string    `json:"metrics_addr"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config in args. Without such a flag nothing happens. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.ConfigFile(args)
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.Environment, jc.Environment)
	setString(&cfg.APIURL, jc.APIURL)
	setString(&cfg.StateFile, jc.StateFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.ExpiryCheckInterval, jc.ExpiryCheckInterval)
	setDuration(&cfg.SearchDebounce, jc.SearchDebounce)
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}
