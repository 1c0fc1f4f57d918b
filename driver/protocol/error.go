package protocol

import (
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

var (
	SqlstateMarker = byte('#')

	DefaultSqlstate = []byte("HY000")
)

// DecodeError 解析错误包: 0xFF, code(2), ['#', state(5)], message
func DecodeError(buff []byte) *mysql.SQLError {
	if len(buff) < 3 {
		return mysql.NewServerError(0, mysql.StateGeneral, "malformed error packet")
	}
	cursor, code := util.ReadUB2(buff, 1)
	state := string(DefaultSqlstate)
	if cursor < len(buff) && buff[cursor] == SqlstateMarker && len(buff) >= cursor+6 {
		state = string(buff[cursor+1 : cursor+6])
		cursor += 6
	}
	return mysql.NewServerError(code, state, string(buff[cursor:]))
}

// EncodeError 构造错误包负载
func EncodeError(code uint16, state, message string) []byte {
	if len(state) != 5 {
		state = string(DefaultSqlstate)
	}
	buff := make([]byte, 0, 9+len(message))
	buff = util.WriteByte(buff, ErrHeader)
	buff = util.WriteUB2(buff, code)
	buff = util.WriteByte(buff, SqlstateMarker)
	buff = util.WriteBytes(buff, []byte(state))
	buff = util.WriteBytes(buff, []byte(message))
	return buff
}
