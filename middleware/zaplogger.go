package middleware

import (
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerOnce sync.Once // 单例初始化锁
	Logger     *zap.Logger
)

// 初始化Zap日志（支持输出到文件和控制台，按大小切割日志）
func InitZapLogger() {
	loggerOnce.Do(func() {
		// 日志文件配置（按大小切割，保留30天）
		fileWriter := &lumberjack.Logger{
			Filename:   "./logs/virtual-tours.log", // 日志文件路径
			MaxSize:    100,                        // 单个文件最大100MB
			MaxBackups: 30,                         // 最多保留30个备份
			MaxAge:     30,                         // 保留30天
			Compress:   true,                       // 压缩旧日志
		}
		fileSyncer := zapcore.AddSync(fileWriter)
		// 控制台输出
		consoleSyncer := zapcore.AddSync(os.Stdout)
		// 日志级别（生产环境用Info，开发环境用Debug）
		atomicLevel := zap.NewAtomicLevel()
		if os.Getenv("ENV") == "dev" {
			atomicLevel.SetLevel(zap.DebugLevel)
		} else {
			atomicLevel.SetLevel(zap.InfoLevel)
		}

		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder, // 级别大写（INFO/ERROR）
			EncodeTime:     customTimeEncoder,           // 自定义时间格式
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
		encoder := zapcore.NewJSONEncoder(encoderConfig)
		core := zapcore.NewCore(
			encoder,
			zapcore.NewMultiWriteSyncer(fileSyncer, consoleSyncer), // 同时输出到文件和控制台
			atomicLevel,
		)

		// 错误级别起带堆栈跟踪（未分类的内部失败要能在日志里定位）
		logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))

		Logger = logger
	})
}

// 自定义时间格式（如 2023-10-01 15:04:05.000）
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}
