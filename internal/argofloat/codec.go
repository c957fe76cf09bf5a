package argofloat

import (
	"encoding/json"
	"fmt"
)

// storedProfile is the JSON layout of one profile series in the profile_data column.
type storedProfile struct {
	Values   []float64 `json:"values"`
	Units    string    `json:"units"`
	LongName string    `json:"long_name"`
}

func encodeProfile(p map[string]ParameterProfile) ([]byte, error) {
	out := make(map[string]storedProfile, len(p))
	for code, series := range p {
		values := finiteValues(series.Values)
		if values == nil {
			values = []float64{}
		}
		out[code] = storedProfile{Values: values, Units: series.Units, LongName: series.LongName}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return b, nil
}

func decodeProfile(b []byte) (map[string]ParameterProfile, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var stored map[string]storedProfile
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}
	out := make(map[string]ParameterProfile, len(stored))
	for code, series := range stored {
		out[code] = ParameterProfile{Values: series.Values, Units: series.Units, LongName: series.LongName}
	}
	return out, nil
}

func encodeParameters(params []string) ([]byte, error) {
	if params == nil {
		params = []string{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return b, nil
}

func decodeParameters(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var params []string
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}
