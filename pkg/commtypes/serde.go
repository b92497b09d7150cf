package commtypes

import (
	"strings"

	"igmp-stats/pkg/common_errors"
)

type SerdeFormat uint8

const (
	JSON SerdeFormat = 0
	MSGP SerdeFormat = 1
)

func (f SerdeFormat) String() string {
	switch f {
	case JSON:
		return "json"
	case MSGP:
		return "msgp"
	default:
		return "unknown"
	}
}

// ParseSerdeFormat accepts "json" or "msgp" in any case.
func ParseSerdeFormat(s string) (SerdeFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "msgp", "msgpack":
		return MSGP, nil
	default:
		return 0, common_errors.ErrUnrecognizedSerdeFormat
	}
}

type EncoderG[V any] interface {
	Encode(v V) ([]byte, error)
}

type DecoderG[V any] interface {
	Decode([]byte) (V, error)
}

type SerdeG[V any] interface {
	EncoderG[V]
	DecoderG[V]
}
