package commtypes

import (
	"encoding/json"
	"fmt"

	"igmp-stats/pkg/common_errors"
)

type StatsEventJSONSerdeG struct{}

func (s StatsEventJSONSerdeG) String() string {
	return "StatsEventJSONSerdeG"
}

var _ = fmt.Stringer(StatsEventJSONSerdeG{})

var _ = SerdeG[StatsEvent](StatsEventJSONSerdeG{})

type StatsEventMsgpSerdeG struct{}

func (s StatsEventMsgpSerdeG) String() string {
	return "StatsEventMsgpSerdeG"
}

var _ = fmt.Stringer(StatsEventMsgpSerdeG{})

var _ = SerdeG[StatsEvent](StatsEventMsgpSerdeG{})

func (s StatsEventJSONSerdeG) Encode(value StatsEvent) ([]byte, error) {
	return json.Marshal(value)
}

func (s StatsEventJSONSerdeG) Decode(value []byte) (StatsEvent, error) {
	v := StatsEvent{}
	if err := json.Unmarshal(value, &v); err != nil {
		return StatsEvent{}, err
	}
	return v, nil
}

func (s StatsEventMsgpSerdeG) Encode(value StatsEvent) ([]byte, error) {
	return value.MarshalMsg(nil)
}

func (s StatsEventMsgpSerdeG) Decode(value []byte) (StatsEvent, error) {
	v := StatsEvent{}
	if _, err := v.UnmarshalMsg(value); err != nil {
		return StatsEvent{}, err
	}
	return v, nil
}

func GetStatsEventSerdeG(serdeFormat SerdeFormat) (SerdeG[StatsEvent], error) {
	switch serdeFormat {
	case JSON:
		return StatsEventJSONSerdeG{}, nil
	case MSGP:
		return StatsEventMsgpSerdeG{}, nil
	default:
		return nil, common_errors.ErrUnrecognizedSerdeFormat
	}
}
