package commtypes

import (
	"testing"
)

func TestSerdeStatsEvent(t *testing.T) {
	v := StatsEvent{}
	jsonSerdeG := StatsEventJSONSerdeG{}
	GenTestEncodeDecode(v, t, jsonSerdeG)
	msgSerdeG := StatsEventMsgpSerdeG{}
	GenTestEncodeDecode(v, t, msgSerdeG)
}
