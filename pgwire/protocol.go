package pgwire

// Protocol version 3.0.
const ProtocolVersion int32 = 196608 // 3 << 16

// Special request codes sent in place of a protocol version in the first
// message of a connection.
const (
	SSLRequestCode    int32 = 80877103
	CancelRequestCode int32 = 80877102
)

// Frontend (client → server) message types.
const (
	MsgPasswordMessage byte = 'p'
	MsgQuery           byte = 'Q'
	MsgParse           byte = 'P'
	MsgBind            byte = 'B'
	MsgDescribe        byte = 'D'
	MsgExecute         byte = 'E'
	MsgClose           byte = 'C'
	MsgSync            byte = 'S'
	MsgFlush           byte = 'H'
	MsgTerminate       byte = 'X'
)

// Backend (server → client) message types.
const (
	MsgAuthentication        byte = 'R'
	MsgBackendKeyData        byte = 'K'
	MsgBindComplete          byte = '2'
	MsgCloseComplete         byte = '3'
	MsgCommandComplete       byte = 'C'
	MsgDataRow               byte = 'D'
	MsgErrorResponse         byte = 'E'
	MsgEmptyQueryResponse    byte = 'I'
	MsgNoData                byte = 'n'
	MsgParameterDescription  byte = 't'
	MsgParameterStatus       byte = 'S'
	MsgParseComplete         byte = '1'
	MsgPortalSuspended       byte = 's'
	MsgReadyForQuery         byte = 'Z'
	MsgRowDescription        byte = 'T'
)

// Authentication sub-types (carried inside 'R' messages).
const (
	AuthOk                int32 = 0
	AuthCleartextPassword int32 = 3
)

// Transaction status indicators for ReadyForQuery.
const (
	TxIdle   byte = 'I'
	TxInTx   byte = 'T'
	TxFailed byte = 'E'
)

// Value format codes used in Bind and RowDescription.
const (
	FormatText   int16 = 0
	FormatBinary int16 = 1
)

// Describe / Close target kinds.
const (
	TargetStatement byte = 'S'
	TargetPortal    byte = 'P'
)

// StartupMessage is the initial message sent by the client after the TCP
// connection is established (and after an optional SSL negotiation).
type StartupMessage struct {
	ProtocolVersion int32
	Parameters      map[string]string
}

// ColumnInfo describes a single column in a RowDescription message.
type ColumnInfo struct {
	Name         string
	TableOID     int32
	ColumnAttr   int16
	DataTypeOID  int32
	DataTypeSize int16
	TypeModifier int32
	FormatCode   int16
}
