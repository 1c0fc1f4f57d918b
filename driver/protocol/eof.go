package protocol

import (
	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/util"
)

// DecodeEOF 经典EOF包: 0xFE, warnings(2), status(2)
func DecodeEOF(buff []byte) (StreamFlags, error) {
	var flags StreamFlags
	if len(buff) < 5 {
		// 4.1 之前的服务端只发送一个字节
		if len(buff) == 1 {
			return flags, nil
		}
		return flags, errors.Errorf("malformed EOF packet, length %d", len(buff))
	}
	cursor := 1
	cursor, flags.WarningCount = util.ReadUB2(buff, cursor)
	_, flags.ServerStatus = util.ReadUB2(buff, cursor)
	return flags, nil
}

// EncodeEOF 构造经典EOF包负载
func EncodeEOF(warnings, status uint16) []byte {
	data := make([]byte, 0, 5)
	data = util.WriteByte(data, EOFHeader)
	data = util.WriteUB2(data, warnings)
	data = util.WriteUB2(data, status)
	return data
}
