package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/conf"
	"github.com/zhukovaskychina/xmysql-connector/driver/lob"
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/protocol"
	"github.com/zhukovaskychina/xmysql-connector/driver/resultset"
	"github.com/zhukovaskychina/xmysql-connector/driver/session"
	"github.com/zhukovaskychina/xmysql-connector/logger"
)

const help = `
******************************************************************************************
*帮助:
*1. -- help
*2. -- configPath   指定 driver.ini / driver.toml 配置文件
*3. -- dsn          user:pass@tcp(host:port)/db?fetchSize=2&useCursorFetch=true
*4. -- rows         录制结果集的行数
******************************************************************************************
`

func main() {
	var configPath, dsn string
	var rows int
	var showHelp bool
	flag.StringVar(&configPath, "configPath", "", "配置文件路径")
	flag.StringVar(&dsn, "dsn", "", "DSN参数")
	flag.IntVar(&rows, "rows", 5, "录制的行数")
	flag.BoolVar(&showHelp, "help", false, "帮助")
	flag.Parse()
	if showHelp {
		fmt.Print(help)
		return
	}

	config, err := conf.NewCfg().Load(&conf.CommandLineArgs{ConfigPath: configPath, DSN: dsn})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitLogger(logger.LogConfig{
		ErrorLogPath: config.LogError,
		InfoLogPath:  config.LogInfos,
		LogLevel:     config.LogLevel,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	if config.FetchSize == 0 {
		config.FetchSize = 2
	}

	ctx := context.Background()
	for _, step := range []func(context.Context, *conf.Cfg, int) error{demoEager, demoStreaming, demoPaged, demoLob} {
		if err := step(ctx, config, rows); err != nil {
			logger.Errorf("demo failed: %s", errors.ErrorStack(err))
			os.Exit(1)
		}
	}
	logger.Info("all cursor strategies replayed successfully")
}

var demoColumns = []*mysql.ColumnDescriptor{
	{Database: "shop", Table: "items", OrgTable: "items", Name: "id", OrgName: "id", Charset: 63, Type: mysql.TypeLonglong, Flags: mysql.PriKeyFlag | mysql.NotNullFlag},
	{Database: "shop", Table: "items", OrgTable: "items", Name: "name", OrgName: "name", Charset: 33, Type: mysql.TypeVarString},
}

// record 把一个完整的文本结果集按线协议写入字节流
func record(cfg *conf.Cfg, rows int, terminator []byte) ([]byte, error) {
	var stream bytes.Buffer
	w := protocol.NewPacketWriter(&stream, protocol.ParseCompressType(cfg.Compress))
	packets := [][]byte{protocol.EncodeColumnCount(len(demoColumns))}
	for _, c := range demoColumns {
		packets = append(packets, protocol.EncodeColumnDefinition(c))
	}
	if !cfg.DeprecateEOF {
		packets = append(packets, protocol.EncodeEOF(0, mysql.ServerStatusAutocommit))
	}
	for i := 1; i <= rows; i++ {
		packets = append(packets, protocol.EncodeTextRow([][]byte{[]byte(strconv.Itoa(i)), []byte("item-" + strconv.Itoa(i))}))
	}
	packets = append(packets, terminator)
	for _, p := range packets {
		if err := w.WritePacket(p); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Trace(err)
	}
	return stream.Bytes(), nil
}

func terminator(cfg *conf.Cfg, status uint16) []byte {
	if cfg.DeprecateEOF {
		return protocol.EncodeOK(protocol.EOFHeader, 0, 0, status, 0, "")
	}
	return protocol.EncodeEOF(0, status)
}

// replay 读取列定义后返回停在首行的帧源
func replay(cfg *conf.Cfg, stream []byte) (protocol.PacketSource, []*mysql.ColumnDescriptor, error) {
	r := protocol.NewPacketReader(bytes.NewReader(stream), protocol.ParseCompressType(cfg.Compress))
	first, err := r.NextFrame()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	count, err := protocol.ReadColumnCount(first)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	cols, err := protocol.ReadColumns(r, count, cfg.DeprecateEOF)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return r, cols, nil
}

type noopExecutor struct{}

func (noopExecutor) Execute(_ context.Context, stmt *session.Statement) (*session.Response, error) {
	logger.Infof("execute: %s", stmt.SQL)
	return &session.Response{}, nil
}

func walk(rs *resultset.ResultSet) error {
	for {
		ok, err := rs.Next()
		if err != nil {
			return errors.Trace(err)
		}
		if !ok {
			break
		}
		row, _ := rs.GetRow()
		name, err := rs.GetString(2)
		if err != nil {
			return errors.Trace(err)
		}
		logger.Infof("  %s row %d: %s", rs.State(), row, name)
	}
	logger.Infof("  %s done, %d rows", rs.State(), rs.RowCount())
	return rs.Close()
}

func demoEager(ctx context.Context, cfg *conf.Cfg, rows int) error {
	stream, err := record(cfg, rows, terminator(cfg, mysql.ServerStatusAutocommit))
	if err != nil {
		return err
	}
	src, cols, err := replay(cfg, stream)
	if err != nil {
		return err
	}
	sess := session.NewSession(noopExecutor{}, session.WithConfig(cfg))
	defer sess.Close()
	rs, err := resultset.New(ctx, sess, cols, src, resultset.Options{Scroll: resultset.ScrollInsensitive})
	if err != nil {
		return err
	}
	if ok, err := rs.Last(); err != nil || !ok {
		return errors.Errorf("last row not reachable: %v", err)
	}
	if err := rs.BeforeFirst(); err != nil {
		return err
	}
	return walk(rs)
}

func demoStreaming(ctx context.Context, cfg *conf.Cfg, rows int) error {
	stream, err := record(cfg, rows, terminator(cfg, mysql.ServerStatusAutocommit))
	if err != nil {
		return err
	}
	src, cols, err := replay(cfg, stream)
	if err != nil {
		return err
	}
	sess := session.NewSession(noopExecutor{}, session.WithConfig(cfg))
	defer sess.Close()
	rs, err := resultset.New(ctx, sess, cols, src, resultset.Options{FetchSize: cfg.FetchSize})
	if err != nil {
		return err
	}
	if _, err := rs.Next(); err != nil {
		return err
	}
	// 新命令会先读完流式结果
	if _, err := sess.Execute(ctx, &session.Statement{SQL: "SELECT 1"}); err != nil {
		return err
	}
	return walk(rs)
}

// pageServer 服务端游标的内存实现，每页重新录制成线协议字节流
type pageServer struct {
	cfg   *conf.Cfg
	total int
	sent  int
}

func (p *pageServer) FetchMore(_ context.Context, cursorID uint32, rows int) (protocol.PacketSource, error) {
	var stream bytes.Buffer
	w := protocol.NewPacketWriter(&stream, protocol.ParseCompressType(p.cfg.Compress))
	for i := 0; i < rows && p.sent < p.total; i++ {
		p.sent++
		if err := w.WritePacket(protocol.EncodeTextRow([][]byte{
			[]byte(strconv.Itoa(p.sent)), []byte(fmt.Sprintf("cursor-%d-item-%d", cursorID, p.sent)),
		})); err != nil {
			return nil, errors.Trace(err)
		}
	}
	status := mysql.ServerStatusCursorExists
	if p.sent >= p.total {
		status |= mysql.ServerStatusLastRowSent
	}
	if err := w.WritePacket(terminator(p.cfg, status)); err != nil {
		return nil, errors.Trace(err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Trace(err)
	}
	return protocol.NewPacketReader(bytes.NewReader(stream.Bytes()), protocol.ParseCompressType(p.cfg.Compress)), nil
}

func demoPaged(ctx context.Context, base *conf.Cfg, rows int) error {
	cfg := *base
	cfg.UseCursorFetch = true
	stream, err := record(&cfg, 0, terminator(&cfg, mysql.ServerStatusCursorExists))
	if err != nil {
		return err
	}
	src, cols, err := replay(&cfg, stream)
	if err != nil {
		return err
	}
	sess := session.NewSession(noopExecutor{}, session.WithConfig(&cfg), session.WithCursorFetcher(&pageServer{cfg: &cfg, total: rows}))
	defer sess.Close()
	rs, err := resultset.New(ctx, sess, cols, src, resultset.Options{FetchSize: cfg.FetchSize, CursorID: 1})
	if err != nil {
		return err
	}
	return walk(rs)
}

// lobStore 单个LOB的内存存储
type lobStore struct {
	data []byte
}

func (s *lobStore) locator() (*lob.Locator, error) {
	return lob.ParseLocator(lob.EncodeV2(0x4C4F4221, 0, uint64(len(s.data)), []byte("demo")))
}

func (s *lobStore) Read(_ context.Context, _ *lob.Locator, maxAmount int, offset int64) ([]byte, int, error) {
	start := int(offset - 1)
	if start >= len(s.data) {
		return nil, 0, mysql.NewServerError(mysql.ErrCodeNoDataFound, "02000", "no data found")
	}
	end := start + maxAmount
	if end > len(s.data) {
		end = len(s.data)
	}
	return s.data[start:end], end - start, nil
}

func (s *lobStore) Write(_ context.Context, _ *lob.Locator, offset int64, buf []byte) (*lob.Locator, error) {
	start := int(offset - 1)
	for len(s.data) < start+len(buf) {
		s.data = append(s.data, 0)
	}
	copy(s.data[start:], buf)
	return s.locator()
}

func (s *lobStore) Trim(_ context.Context, _ *lob.Locator, newLength int64) (*lob.Locator, error) {
	if int(newLength) < len(s.data) {
		s.data = s.data[:newLength]
	}
	return s.locator()
}

func demoLob(ctx context.Context, cfg *conf.Cfg, _ int) error {
	store := &lobStore{data: []byte("hello")}
	loc, err := store.locator()
	if err != nil {
		return err
	}
	cols := []*mysql.ColumnDescriptor{{Name: "doc", Type: mysql.TypeOraClob, Charset: 33}}
	src := protocol.NewMemorySource(protocol.EncodeTextRow([][]byte{loc.Bytes()}), terminator(cfg, 0))
	sess := session.NewSession(noopExecutor{}, session.WithConfig(cfg))
	defer sess.Close()

	rs, err := resultset.New(ctx, sess, cols, src, resultset.Options{LobRPC: store})
	if err != nil {
		return err
	}
	if _, err := rs.Next(); err != nil {
		return err
	}
	clob, err := rs.GetClob(1)
	if err != nil {
		return err
	}
	if _, err := clob.SetString(ctx, 6, ", world"); err != nil {
		return err
	}
	text, err := clob.ReadString(ctx)
	if err != nil {
		return err
	}
	length, err := clob.Length(ctx)
	if err != nil {
		return err
	}
	logger.Infof("  LOB %s holds %q (%d bytes)", clob.Locator().Version, text, length)
	return rs.Close()
}
