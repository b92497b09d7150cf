package commtypes

// msgp encoding for stats events. StatsSnapshot is written as a map from wire
// name to count so that decoders skip counters they do not know.

import (
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler
func (z EventType) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendUint8(o, uint8(z))
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *EventType) UnmarshalMsg(bts []byte) (o []byte, err error) {
	{
		var zb0001 uint8
		zb0001, bts, err = msgp.ReadUint8Bytes(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		(*z) = EventType(zb0001)
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z EventType) Msgsize() (s int) {
	s = msgp.Uint8Size
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *StatsEvent) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 4
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "type")
	o = msgp.AppendUint8(o, uint8(z.Type))
	o = msgp.AppendString(o, "seq")
	o = msgp.AppendUint64(o, z.Seq)
	o = msgp.AppendString(o, "ts")
	o = msgp.AppendInt64(o, z.Timestamp)
	o = msgp.AppendString(o, "stats")
	o, err = z.Snapshot.MarshalMsg(o)
	if err != nil {
		err = msgp.WrapError(err, "Snapshot")
		return
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *StatsEvent) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	_ = field
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "type":
			bts, err = z.Type.UnmarshalMsg(bts)
			if err != nil {
				err = msgp.WrapError(err, "Type")
				return
			}
		case "seq":
			z.Seq, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Seq")
				return
			}
		case "ts":
			z.Timestamp, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Timestamp")
				return
			}
		case "stats":
			bts, err = z.Snapshot.UnmarshalMsg(bts)
			if err != nil {
				err = msgp.WrapError(err, "Snapshot")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *StatsEvent) Msgsize() (s int) {
	s = 1 + 5 + msgp.Uint8Size + 4 + msgp.Uint64Size + 3 + msgp.Int64Size + 6 + z.Snapshot.Msgsize()
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *StatsSnapshot) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, uint32(NumCounters))
	for i := range z.counts {
		o = msgp.AppendString(o, counterWireNames[i])
		o = msgp.AppendUint64(o, z.counts[i])
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *StatsSnapshot) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	_ = field
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	*z = StatsSnapshot{}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		c, ok := ParseCounterName(string(field))
		if !ok {
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
			continue
		}
		z.counts[c], bts, err = msgp.ReadUint64Bytes(bts)
		if err != nil {
			err = msgp.WrapError(err, c.String())
			return
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *StatsSnapshot) Msgsize() (s int) {
	s = msgp.MapHeaderSize
	for i := range z.counts {
		s += msgp.StringPrefixSize + len(counterWireNames[i]) + msgp.Uint64Size
	}
	return
}
