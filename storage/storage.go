// Package storage provides the axis settings stores: a JSON settings file,
// BoltDB and Redis. The replicated store lives in the raft package.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/devadigapratham/printd/axis"
)

func encode(id axis.ID, settings axis.Settings) ([]byte, error) {
	payload, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings of axis %s: %w", id, err)
	}
	return payload, nil
}

func decode(id axis.ID, payload []byte) (axis.Settings, error) {
	var settings axis.Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return axis.Settings{}, fmt.Errorf("unmarshal settings of axis %s: %w", id, err)
	}
	return settings, nil
}
