package conf

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	"github.com/pelletier/go-toml"
	"gopkg.in/ini.v1"

	"github.com/zhukovaskychina/xmysql-connector/logger"
)

// MaxLobChunkSize LOB RPC单次读写的最大字节数
const MaxLobChunkSize = 1048576

type CommandLineArgs struct {
	ConfigPath string
	DSN        string
}

/*
[driver]
fetch_size         = 0
max_rows           = 0
use_cursor_fetch   = false
deprecate_eof      = false
row_id_addressable = false
row_id_column      = ROWID
refresh_batch_size = 10
compress           = none

[lob]
lob_chunk_size = 1048576
lob_max_chunks = 65536

[logs]
log_error = /var/log/xmysql/error.log
log_infos = /var/log/xmysql/driver.log
log_level = info
*/
type Cfg struct {
	Raw *ini.File

	// driver
	FetchSize        int    `default:"0" yaml:"fetch_size" json:"fetch_size,omitempty"`
	MaxRows          int64  `default:"0" yaml:"max_rows" json:"max_rows,omitempty"`
	UseCursorFetch   bool   `default:"false" yaml:"use_cursor_fetch" json:"use_cursor_fetch,omitempty"`
	DeprecateEOF     bool   `default:"false" yaml:"deprecate_eof" json:"deprecate_eof,omitempty"`
	RowIDAddressable bool   `default:"false" yaml:"row_id_addressable" json:"row_id_addressable,omitempty"`
	RowIDColumn      string `default:"ROWID" yaml:"row_id_column" json:"row_id_column,omitempty"`
	RefreshBatchSize int    `default:"10" yaml:"refresh_batch_size" json:"refresh_batch_size,omitempty"`
	Compress         string `default:"none" yaml:"compress" json:"compress,omitempty"`

	// lob
	LobChunkSize int `default:"1048576" yaml:"lob_chunk_size" json:"lob_chunk_size,omitempty"`
	LobMaxChunks int `default:"65536" yaml:"lob_max_chunks" json:"lob_max_chunks,omitempty"`

	// logs
	LogError string `default:"" yaml:"log_error" json:"log_error,omitempty"`
	LogInfos string `default:"" yaml:"log_infos" json:"log_infos,omitempty"`
	LogLevel string `default:"info" yaml:"log_level" json:"log_level,omitempty"`

	// dsn
	User   string
	Addr   string
	DBName string
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:              ini.Empty(),
		RowIDColumn:      "ROWID",
		RefreshBatchSize: 10,
		Compress:         "none",
		LobChunkSize:     MaxLobChunkSize,
		LobMaxChunks:     65536,
		LogLevel:         "info",
	}
}

// Load 依次加载配置文件(ini/toml)与DSN参数，后者覆盖前者
func (cfg *Cfg) Load(args *CommandLineArgs) (*Cfg, error) {
	if args.ConfigPath != "" {
		switch strings.ToLower(filepath.Ext(args.ConfigPath)) {
		case ".toml":
			tree, err := toml.LoadFile(args.ConfigPath)
			if err != nil {
				return nil, errors.Annotatef(err, "toml.LoadFile(%s)", args.ConfigPath)
			}
			cfg.parseTomlCfg(tree)
		default:
			iniFile, err := ini.Load(args.ConfigPath)
			if err != nil {
				return nil, errors.Annotatef(err, "ini.Load(%s)", args.ConfigPath)
			}
			cfg.Raw = iniFile
			cfg.parseDriverCfg(iniFile.Section("driver"))
			cfg.parseLobCfg(iniFile.Section("lob"))
			cfg.parseLogsCfg(iniFile.Section("logs"))
		}
	}
	if args.DSN != "" {
		if err := cfg.ApplyDSN(args.DSN); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logger.Debugf("driver config loaded: fetch_size=%d max_rows=%d cursor_fetch=%v deprecate_eof=%v compress=%s",
		cfg.FetchSize, cfg.MaxRows, cfg.UseCursorFetch, cfg.DeprecateEOF, cfg.Compress)
	return cfg, nil
}

func (cfg *Cfg) parseDriverCfg(section *ini.Section) *Cfg {
	cfg.FetchSize = section.Key("fetch_size").MustInt(cfg.FetchSize)
	cfg.MaxRows = section.Key("max_rows").MustInt64(cfg.MaxRows)
	cfg.UseCursorFetch = section.Key("use_cursor_fetch").MustBool(cfg.UseCursorFetch)
	cfg.DeprecateEOF = section.Key("deprecate_eof").MustBool(cfg.DeprecateEOF)
	cfg.RowIDAddressable = section.Key("row_id_addressable").MustBool(cfg.RowIDAddressable)
	cfg.RowIDColumn = section.Key("row_id_column").MustString(cfg.RowIDColumn)
	cfg.RefreshBatchSize = section.Key("refresh_batch_size").MustInt(cfg.RefreshBatchSize)
	cfg.Compress = section.Key("compress").MustString(cfg.Compress)
	return cfg
}

func (cfg *Cfg) parseLobCfg(section *ini.Section) *Cfg {
	cfg.LobChunkSize = section.Key("lob_chunk_size").MustInt(cfg.LobChunkSize)
	cfg.LobMaxChunks = section.Key("lob_max_chunks").MustInt(cfg.LobMaxChunks)
	return cfg
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	cfg.LogError = section.Key("log_error").MustString(cfg.LogError)
	cfg.LogInfos = section.Key("log_infos").MustString(cfg.LogInfos)
	cfg.LogLevel = section.Key("log_level").MustString(cfg.LogLevel)
	return cfg
}

func (cfg *Cfg) parseTomlCfg(tree *toml.Tree) *Cfg {
	cfg.FetchSize = int(tomlInt(tree, "driver.fetch_size", int64(cfg.FetchSize)))
	cfg.MaxRows = tomlInt(tree, "driver.max_rows", cfg.MaxRows)
	cfg.UseCursorFetch = tomlBool(tree, "driver.use_cursor_fetch", cfg.UseCursorFetch)
	cfg.DeprecateEOF = tomlBool(tree, "driver.deprecate_eof", cfg.DeprecateEOF)
	cfg.RowIDAddressable = tomlBool(tree, "driver.row_id_addressable", cfg.RowIDAddressable)
	cfg.RowIDColumn = tomlString(tree, "driver.row_id_column", cfg.RowIDColumn)
	cfg.RefreshBatchSize = int(tomlInt(tree, "driver.refresh_batch_size", int64(cfg.RefreshBatchSize)))
	cfg.Compress = tomlString(tree, "driver.compress", cfg.Compress)
	cfg.LobChunkSize = int(tomlInt(tree, "lob.lob_chunk_size", int64(cfg.LobChunkSize)))
	cfg.LobMaxChunks = int(tomlInt(tree, "lob.lob_max_chunks", int64(cfg.LobMaxChunks)))
	cfg.LogError = tomlString(tree, "logs.log_error", cfg.LogError)
	cfg.LogInfos = tomlString(tree, "logs.log_infos", cfg.LogInfos)
	cfg.LogLevel = tomlString(tree, "logs.log_level", cfg.LogLevel)
	return cfg
}

func tomlInt(tree *toml.Tree, key string, def int64) int64 {
	if v, ok := tree.Get(key).(int64); ok {
		return v
	}
	return def
}

func tomlBool(tree *toml.Tree, key string, def bool) bool {
	if v, ok := tree.Get(key).(bool); ok {
		return v
	}
	return def
}

func tomlString(tree *toml.Tree, key string, def string) string {
	if v, ok := tree.Get(key).(string); ok {
		return v
	}
	return def
}

// ApplyDSN 解析 user:pass@tcp(host:port)/db?fetchSize=100 形式的DSN
func (cfg *Cfg) ApplyDSN(dsn string) error {
	dsnCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return errors.Annotatef(err, "mysql.ParseDSN")
	}
	cfg.User = dsnCfg.User
	cfg.Addr = dsnCfg.Addr
	cfg.DBName = dsnCfg.DBName

	for key, value := range dsnCfg.Params {
		switch key {
		case "fetchSize", "defaultFetchSize":
			cfg.FetchSize, err = strconv.Atoi(value)
		case "maxRows":
			cfg.MaxRows, err = strconv.ParseInt(value, 10, 64)
		case "useCursorFetch":
			cfg.UseCursorFetch, err = strconv.ParseBool(value)
		case "deprecateEOF":
			cfg.DeprecateEOF, err = strconv.ParseBool(value)
		case "rowIdAddressable":
			cfg.RowIDAddressable, err = strconv.ParseBool(value)
		case "rowIdColumn":
			cfg.RowIDColumn = value
		case "refreshBatchSize":
			cfg.RefreshBatchSize, err = strconv.Atoi(value)
		case "lobChunkSize":
			cfg.LobChunkSize, err = strconv.Atoi(value)
		case "lobMaxChunks":
			cfg.LobMaxChunks, err = strconv.Atoi(value)
		case "logLevel":
			cfg.LogLevel = value
		default:
			logger.Debugf("ignore unknown dsn param %s=%s", key, value)
		}
		if err != nil {
			return errors.Annotatef(err, "dsn param %s=%s", key, value)
		}
	}
	return nil
}

// Validate 校验取值范围
func (cfg *Cfg) Validate() error {
	if cfg.FetchSize < 0 {
		return errors.NotValidf("fetch_size %d", cfg.FetchSize)
	}
	if cfg.MaxRows < 0 {
		return errors.NotValidf("max_rows %d", cfg.MaxRows)
	}
	if cfg.LobChunkSize <= 0 || cfg.LobChunkSize > MaxLobChunkSize {
		return errors.NotValidf("lob_chunk_size %d (max %d)", cfg.LobChunkSize, MaxLobChunkSize)
	}
	if cfg.LobMaxChunks <= 0 {
		return errors.NotValidf("lob_max_chunks %d", cfg.LobMaxChunks)
	}
	if cfg.RefreshBatchSize <= 0 {
		cfg.RefreshBatchSize = 1
	}
	switch strings.ToLower(cfg.Compress) {
	case "", "none", "zip", "flate", "snappy", "lz4":
	default:
		return errors.NotValidf("compress %q", cfg.Compress)
	}
	return nil
}
