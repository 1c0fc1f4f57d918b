package protocol

import (
	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/util"
)

type OK struct {
	PacketType   byte
	AffectedRows uint64
	InsertID     uint64
	ServerStatus uint16
	WarningNum   uint16
	Info         string
}

// DecodeOk 解析普通OK包
func DecodeOk(buff []byte) (*OK, error) {
	if len(buff) < 7 {
		return nil, errors.Errorf("malformed OK packet, length %d", len(buff))
	}
	ok := new(OK)
	cursor := 0
	cursor, ok.PacketType = util.ReadByte(buff, cursor)
	cursor, ok.AffectedRows, _ = util.ReadLength(buff, cursor)
	cursor, ok.InsertID, _ = util.ReadLength(buff, cursor)
	if cursor+4 > len(buff) {
		return nil, errors.Errorf("malformed OK packet, length %d", len(buff))
	}
	cursor, ok.ServerStatus = util.ReadUB2(buff, cursor)
	cursor, ok.WarningNum = util.ReadUB2(buff, cursor)
	if cursor < len(buff) {
		ok.Info = string(buff[cursor:])
	}
	return ok, nil
}

// DecodeOKTerminator 以OK包(首字节0xFE)结束结果集时只关心状态与告警，
// 影响行数与自增ID按长度编码规则跳过
func DecodeOKTerminator(buff []byte) (StreamFlags, error) {
	var flags StreamFlags
	cursor := 1
	cursor, err := util.SkipLength(buff, cursor)
	if err != nil {
		return flags, errors.Annotate(err, "skip affected rows")
	}
	cursor, err = util.SkipLength(buff, cursor)
	if err != nil {
		return flags, errors.Annotate(err, "skip last insert id")
	}
	if cursor+4 > len(buff) {
		return flags, errors.Errorf("malformed OK terminator, length %d", len(buff))
	}
	cursor, flags.ServerStatus = util.ReadUB2(buff, cursor)
	_, flags.WarningCount = util.ReadUB2(buff, cursor)
	return flags, nil
}

// EncodeOK 构造OK包负载，header 为 0x00 或 0xFE(结果集结束)
func EncodeOK(header byte, affectedRows, insertID uint64, status, warnings uint16, info string) []byte {
	buff := make([]byte, 0, 16+len(info))
	buff = util.WriteByte(buff, header)
	buff = util.WriteLength(buff, affectedRows)
	buff = util.WriteLength(buff, insertID)
	buff = util.WriteUB2(buff, status)
	buff = util.WriteUB2(buff, warnings)
	if len(info) > 0 {
		buff = util.WriteBytes(buff, []byte(info))
	}
	return buff
}
