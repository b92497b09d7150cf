package commtypes

import "strconv"

// CounterName identifies one IGMP protocol event counter. The set is fixed at
// compile time; NumCounters is the number of valid names.
type CounterName uint8

const (
	JoinRequest CounterName = iota
	LeaveRequest
	Disconnect
	FailedJoin
	SuccessfulJoinOrRejoin
	MessageReceived
	TotalReceived
	InvalidMessage
	UnknownTypeReceived
	V1MembershipReport
	V2MembershipReport
	V2LeaveGroup
	V3MembershipReport
	V3MembershipQuery
	GeneralMembershipQuery
	GroupSpecificMembershipQuery
	GroupAndSourceSpecificMembershipQuery

	counterNameEnd
)

const NumCounters = int(counterNameEnd)

var counterWireNames = [NumCounters]string{
	JoinRequest:                           "igmpJoinReq",
	LeaveRequest:                          "igmpLeaveReq",
	Disconnect:                            "igmpDisconnect",
	FailedJoin:                            "igmpFailJoinReq",
	SuccessfulJoinOrRejoin:                "igmpSuccessJoinRejoinReq",
	MessageReceived:                       "igmpMsgReceived",
	TotalReceived:                         "totalMsgReceived",
	InvalidMessage:                        "invalidIgmpMsgReceived",
	UnknownTypeReceived:                   "unknownIgmpTypePacketsRx",
	V1MembershipReport:                    "igmpv1MembershipReport",
	V2MembershipReport:                    "igmpv2MembershipReport",
	V2LeaveGroup:                          "igmpv2LeaveGroup",
	V3MembershipReport:                    "igmpv3MembershipReport",
	V3MembershipQuery:                     "igmpv3MembershipQuery",
	GeneralMembershipQuery:                "igmpGeneralMembershipQuery",
	GroupSpecificMembershipQuery:          "igmpGrpSpecificMembershipQuery",
	GroupAndSourceSpecificMembershipQuery: "igmpGrpAndSrcSpecificMembershipQuery",
}

var counterByWireName = func() map[string]CounterName {
	m := make(map[string]CounterName, NumCounters)
	for i, n := range counterWireNames {
		m[n] = CounterName(i)
	}
	return m
}()

func (c CounterName) Valid() bool {
	return c < counterNameEnd
}

// String returns the wire name used in serialized snapshots.
func (c CounterName) String() string {
	if !c.Valid() {
		return "CounterName(" + strconv.Itoa(int(c)) + ")"
	}
	return counterWireNames[c]
}

// ParseCounterName maps a wire name back to its CounterName.
func ParseCounterName(name string) (CounterName, bool) {
	c, ok := counterByWireName[name]
	return c, ok
}

func AllCounterNames() []CounterName {
	names := make([]CounterName, NumCounters)
	for i := range names {
		names[i] = CounterName(i)
	}
	return names
}
