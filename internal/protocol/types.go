package protocol

import "strconv"

// PacketType identifies a framed message. The numeric values are a wire
// contract shared with deployed clients and must never change.
type PacketType uint16

const (
	PacketPing            PacketType = 10
	PacketPong            PacketType = 11
	PacketLogin           PacketType = 100
	PacketSignup          PacketType = 200
	PacketCreateTable     PacketType = 300
	PacketJoinTable       PacketType = 400
	PacketActionRequest   PacketType = 450
	PacketActionResult    PacketType = 451
	PacketUpdateBundle    PacketType = 460
	PacketResyncRequest   PacketType = 470
	PacketResyncReply     PacketType = 471
	PacketListTables      PacketType = 500
	PacketUpdateGameState PacketType = 600
	PacketLeaveTable      PacketType = 700
	PacketScoreboard      PacketType = 800
	PacketFriendList      PacketType = 900
	PacketFriendAdd       PacketType = 910
	PacketFriendRemove    PacketType = 920
	PacketFriendRequests  PacketType = 930
	PacketFriendAccept    PacketType = 940
	PacketTableInvite     PacketType = 950
	PacketTableInvited    PacketType = 960
	PacketBalanceUpdate   PacketType = 970
)

var packetNames = map[PacketType]string{
	PacketPing:            "PING",
	PacketPong:            "PONG",
	PacketLogin:           "LOGIN",
	PacketSignup:          "SIGNUP",
	PacketCreateTable:     "CREATE_TABLE",
	PacketJoinTable:       "JOIN_TABLE",
	PacketActionRequest:   "ACTION_REQUEST",
	PacketActionResult:    "ACTION_RESULT",
	PacketUpdateBundle:    "UPDATE_BUNDLE",
	PacketResyncRequest:   "RESYNC_REQUEST",
	PacketResyncReply:     "RESYNC_REPLY",
	PacketListTables:      "TABLES",
	PacketUpdateGameState: "UPDATE_GAMESTATE",
	PacketLeaveTable:      "LEAVE_TABLE",
	PacketScoreboard:      "SCOREBOARD",
	PacketFriendList:      "FRIENDLIST",
	PacketFriendAdd:       "FRIEND_ADD",
	PacketFriendRemove:    "FRIEND_REMOVE",
	PacketFriendRequests:  "FRIEND_REQUESTS",
	PacketFriendAccept:    "FRIEND_ACCEPT",
	PacketTableInvite:     "TABLE_INVITE",
	PacketTableInvited:    "TABLE_INVITED",
	PacketBalanceUpdate:   "BALANCE_UPDATE",
}

// String names the packet for logs and metrics labels.
func (t PacketType) String() string {
	if name, ok := packetNames[t]; ok {
		return name
	}
	return "UNKNOWN_" + strconv.Itoa(int(t))
}

// Result codes. The per-operation codes (1xx login, 2xx signup, 3xx create,
// 4xx join, 7xx leave) predate the generic ones and are kept verbatim for
// client compatibility.
const (
	CodeOK = 0

	CodeLoginOK      = 101
	CodeLoginFailed  = 102
	CodeSignupOK     = 201
	CodeSignupFailed = 202
	CodeCreateOK     = 301
	CodeCreateFailed = 302
	CodeJoinOK       = 401
	CodeJoinFailed   = 402
	CodeJoinFull     = 403
	CodeLeaveOK      = 701
	CodeLeaveFailed  = 702

	CodeBadRequest    = 400
	CodeUnauthorized  = 403
	CodeNotYourTurn   = 403
	CodeInvalidAction = 409
	CodeServerError   = 500
	CodeDBError       = 502
)
